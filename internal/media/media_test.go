package media_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipsight/internal/media"
	"clipsight/internal/services"
	"clipsight/internal/testsupport"
)

const probeJSON = `{
    "streams": [{"index": 0, "codec_type": "video", "avg_frame_rate": "30/1", "nb_frames": "90"}],
    "format": {"duration": "3.0"}
}`

func TestExtractAudioBuildsWhisperFriendlyWAV(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := media.NewService(cfg, nil)

	audioPath := filepath.Join(t.TempDir(), "audio.wav")
	var gotArgs []string
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotArgs = args
		return os.WriteFile(audioPath, []byte("wav"), 0o644)
	})

	if err := svc.ExtractAudio(context.Background(), "/videos/video.mp4", audioPath); err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"-ac 1", "-ar 16000", "-c:a pcm_s16le", "-vn"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in args: %s", want, joined)
		}
	}
}

func TestExtractAudioFailsWhenOutputMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := media.NewService(cfg, nil)
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return nil
	})

	err := svc.ExtractAudio(context.Background(), "/videos/video.mp4", filepath.Join(t.TempDir(), "audio.wav"))
	if !errors.Is(err, services.ErrMedia) {
		t.Fatalf("expected media error, got %v", err)
	}
}

func TestDetectScenesSplitsAtCuts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := media.NewService(cfg, nil)
	svc.WithOutputRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		if strings.Contains(strings.Join(args, " "), "lavfi") {
			return "1.0\n2.0\n", nil
		}
		return probeJSON, nil
	})

	scenes, err := svc.DetectScenes(context.Background(), "/videos/video.mp4")
	if err != nil {
		t.Fatalf("DetectScenes: %v", err)
	}
	want := []media.Scene{{Start: 0, End: 30}, {Start: 30, End: 60}, {Start: 60, End: 90}}
	if len(scenes) != len(want) {
		t.Fatalf("expected %d scenes, got %d: %v", len(want), len(scenes), scenes)
	}
	for i, scene := range scenes {
		if scene != want[i] {
			t.Fatalf("scene %d: got %+v want %+v", i, scene, want[i])
		}
	}
}

func TestDetectScenesNoCutsYieldsSingleScene(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := media.NewService(cfg, nil)
	svc.WithOutputRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		if strings.Contains(strings.Join(args, " "), "lavfi") {
			return "", nil
		}
		return probeJSON, nil
	})

	scenes, err := svc.DetectScenes(context.Background(), "/videos/video.mp4")
	if err != nil {
		t.Fatalf("DetectScenes: %v", err)
	}
	if len(scenes) != 1 || scenes[0] != (media.Scene{Start: 0, End: 90}) {
		t.Fatalf("expected single full-length scene, got %v", scenes)
	}
}

func TestDetectScenesEmptyVideoYieldsNoScenes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := media.NewService(cfg, nil)
	svc.WithOutputRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		return `{"streams": [], "format": {}}`, nil
	})

	scenes, err := svc.DetectScenes(context.Background(), "/videos/video.mp4")
	if err != nil {
		t.Fatalf("DetectScenes: %v", err)
	}
	if len(scenes) != 0 {
		t.Fatalf("expected no scenes, got %v", scenes)
	}
}

func TestDetectScenesIgnoresOutOfRangeCuts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := media.NewService(cfg, nil)
	svc.WithOutputRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		if strings.Contains(strings.Join(args, " "), "lavfi") {
			return "0.0\n1.0\n999.0\nnot-a-number\n", nil
		}
		return probeJSON, nil
	})

	scenes, err := svc.DetectScenes(context.Background(), "/videos/video.mp4")
	if err != nil {
		t.Fatalf("DetectScenes: %v", err)
	}
	want := []media.Scene{{Start: 0, End: 30}, {Start: 30, End: 90}}
	if len(scenes) != len(want) {
		t.Fatalf("expected %d scenes, got %v", len(want), scenes)
	}
	for i, scene := range scenes {
		if scene != want[i] {
			t.Fatalf("scene %d: got %+v want %+v", i, scene, want[i])
		}
	}
}

func TestExtractFrameReportsOutOfRange(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := media.NewService(cfg, nil)
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return nil
	})

	ok, err := svc.ExtractFrame(context.Background(), "/videos/video.mp4", 10_000, filepath.Join(t.TempDir(), "frame.jpg"))
	if err != nil {
		t.Fatalf("ExtractFrame: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false when ffmpeg produced no frame")
	}
}

func TestExtractFrameWritesImage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := media.NewService(cfg, nil)
	dest := filepath.Join(t.TempDir(), "frame.jpg")
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return os.WriteFile(dest, []byte("jpeg"), 0o644)
	})

	ok, err := svc.ExtractFrame(context.Background(), "/videos/video.mp4", 15, dest)
	if err != nil {
		t.Fatalf("ExtractFrame: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true for written frame")
	}
}

func TestExtractFrameNegativeIndex(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := media.NewService(cfg, nil)

	ok, err := svc.ExtractFrame(context.Background(), "/videos/video.mp4", -1, filepath.Join(t.TempDir(), "frame.jpg"))
	if err != nil || ok {
		t.Fatalf("expected ok=false, nil error; got ok=%v err=%v", ok, err)
	}
}
