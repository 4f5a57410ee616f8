package websocket

import (
	"encoding/base64"
	"time"

	"helmetwatch/internal/frame"
)

// FramePayload carries one annotated frame as a base64 JPEG.
type FramePayload struct {
	Window string `json:"window"`
	Frame  int    `json:"frame"`
	Image  string `json:"image"`
}

// StreamDisplay is a headless display that pushes every Nth shown frame to
// the hub's viewers. It never reports key presses; a streamed loop is stopped
// through its context.
type StreamDisplay struct {
	hub    *HubService
	camera string
	every  int
	shown  int
}

func NewStreamDisplay(hub *HubService, camera string, every int) *StreamDisplay {
	if every < 1 {
		every = 1
	}
	return &StreamDisplay{hub: hub, camera: camera, every: every}
}

func (d *StreamDisplay) Show(window string, f frame.Frame) error {
	d.shown++
	if d.shown%d.every != 0 || d.hub.GetClientCount() == 0 {
		return nil
	}

	data, err := f.EncodeRegion(f.Bounds())
	if err != nil {
		return err
	}
	d.hub.Publish(EventFrame, d.camera, FramePayload{
		Window: window,
		Frame:  d.shown,
		Image:  base64.StdEncoding.EncodeToString(data),
	})
	return nil
}

func (d *StreamDisplay) PollKey(timeout time.Duration) (int, bool) {
	if timeout > 0 {
		time.Sleep(timeout)
	}
	return 0, false
}

func (d *StreamDisplay) Close() error {
	return nil
}
