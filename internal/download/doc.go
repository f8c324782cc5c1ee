// Package download fetches remote videos into job directories.
//
// YouTube links are downloaded in-process through the kkdai/youtube client;
// every other host goes through a yt-dlp subprocess so gated or exotic sites
// keep working. URL validation happens before any network traffic: only
// direct content links are accepted, profile and listing pages are rejected.
package download
