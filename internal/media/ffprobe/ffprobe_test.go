package ffprobe

import "testing"

func TestParseAndHelpers(t *testing.T) {
	payload := []byte(`{
        "streams": [
            {"index": 0, "codec_type": "video", "avg_frame_rate": "30/1", "nb_frames": "900", "width": 1080, "height": 1920},
            {"index": 1, "codec_type": "audio", "channels": 2}
        ],
        "format": {"duration": "30.0", "size": "1000", "format_name": "mp4"}
    }`)

	result, err := Parse(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.VideoStream() == nil || result.VideoStream().Width != 1080 {
		t.Fatalf("unexpected video stream: %+v", result.VideoStream())
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("expected 1 audio stream, got %d", result.AudioStreamCount())
	}
	if result.FrameRate() != 30 {
		t.Fatalf("unexpected frame rate: %v", result.FrameRate())
	}
	if result.FrameCount() != 900 {
		t.Fatalf("unexpected frame count: %d", result.FrameCount())
	}
	if result.DurationSeconds() != 30 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
}

func TestFrameCountFallsBackToDuration(t *testing.T) {
	payload := []byte(`{
        "streams": [{"index": 0, "codec_type": "video", "avg_frame_rate": "25/1"}],
        "format": {"duration": "10.0"}
    }`)
	result, err := Parse(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.FrameCount() != 250 {
		t.Fatalf("expected estimated 250 frames, got %d", result.FrameCount())
	}
}

func TestHelpersHandleMissingVideoStream(t *testing.T) {
	result, err := Parse([]byte(`{"streams": [], "format": {}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.FrameRate() != 0 || result.FrameCount() != 0 {
		t.Fatalf("expected zero rates for missing video stream")
	}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected zero duration, got %v", result.DurationSeconds())
	}
}

func TestParseRejectsMalformedPayload(t *testing.T) {
	if _, err := Parse([]byte("not-json")); err == nil {
		t.Fatal("expected parse error")
	}
}
