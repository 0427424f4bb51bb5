// Package ffprobe wraps the ffprobe binary for container and stream
// inspection. Callers treat a failed inspection as fatal for the track.
package ffprobe
