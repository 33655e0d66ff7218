package ipc

import "github.com/nstehr/trackside/trackside-core/model"

// These constants must stay in sync with the device app's message types.
const (
	TypeHello  = "hello"
	TypeAck    = "ack"
	TypeResult = "result"
	TypeEvent  = "event"

	// Requests sent to the device. Each is answered by a TypeResult
	// envelope carrying the same ID.
	TypeFindMatch    = "find_match"
	TypeFindAll      = "find_all"
	TypeReadText     = "read_text"
	TypeTap          = "tap"
	TypeStatus       = "status"
	TypeChooseOption = "choose_option"
)

type HelloMessage struct {
	Campaign string `json:"campaign"`
	Device   string `json:"device"`
	// Screen size in pixels. Optional; the configured size is used when absent.
	ScreenWidth  int `json:"screenWidth,omitempty"`
	ScreenHeight int `json:"screenHeight,omitempty"`
}

type AckMessage struct {
	Status string `json:"status"`
	RunID  string `json:"runId,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type FindMatchRequest struct {
	Template      string     `json:"template"`
	Tries         int        `json:"tries"`
	MinConfidence float64    `json:"minConfidence,omitempty"`
	Region        model.Rect `json:"region"`
}

type FindAllRequest struct {
	Template string     `json:"template"`
	Region   model.Rect `json:"region"`
}

type FindAllResult struct {
	Locations []model.Location `json:"locations"`
}

type ReadTextRequest struct {
	Region model.Rect `json:"region"`
}

type ReadTextResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type TapRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// StatusResult is the trainee's current state as read by the device app.
// Aptitudes are letter grades keyed by terrain or distance name.
type StatusResult struct {
	Turn     int               `json:"turn"`
	Terrain  map[string]string `json:"terrain"`
	Distance map[string]string `json:"distance"`
}

type ChooseOptionRequest struct {
	Options []model.Location `json:"options"`
}

type ChooseOptionResult struct {
	Index int `json:"index"`
}
