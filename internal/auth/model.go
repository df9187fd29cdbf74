package auth

import (
	"bytes"
	"encoding/json"
)

type loginRequest struct {
	Username looseString `json:"username"`
	PIN      looseString `json:"pin"`
}

type eventRequest struct {
	Action  looseString `json:"action"`
	Details looseString `json:"details"`
}

// looseString accepts a JSON string, number or boolean. Kiosk clients send
// numeric pins as numbers. null and false decode to "".
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")), bytes.Equal(data, []byte("false")):
		*s = ""
		return nil
	case bytes.Equal(data, []byte("true")):
		*s = "true"
		return nil
	case len(data) > 0 && data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = looseString(str)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = looseString(num.String())
	return nil
}

type Credentials struct {
	Username string
	PIN      string
}

type EventInput struct {
	Action  string
	Details string
}

type Session struct {
	Token     string
	ExpiresAt int64
}

type loginResponse struct {
	OK        bool   `json:"ok"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"exp"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
