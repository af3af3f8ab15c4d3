package i3

import "encoding/json"

// Header is the first line written to the bar.
type Header struct {
	Version     int  `json:"version"`
	StopSignal  int  `json:"stop_signal,omitempty"`
	ContSignal  int  `json:"cont_signal,omitempty"`
	ClickEvents bool `json:"click_events"`
}

// DefaultHeader enables click events on protocol version 1.
func DefaultHeader() Header {
	return Header{Version: 1, ClickEvents: true}
}

// Preamble returns the header line followed by the opening bracket of the
// endless status line array.
func (h Header) Preamble() ([]byte, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	data = append(data, '\n', '[', '\n')
	return data, nil
}
