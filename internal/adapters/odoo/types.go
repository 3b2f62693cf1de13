package odoo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DatetimeLayout is the wire format the backend uses for timestamps. All
// values are UTC.
const DatetimeLayout = "2006-01-02 15:04:05"

type rpcEnvelope struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Data    rpcErrorData `json:"data"`
}

type rpcErrorData struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Debug   string `json:"debug"`
}

// sessionInfo is the authenticate result. The backend is loosely typed:
// absent values come back as false rather than null, so the numeric and
// string fields tolerate both.
type sessionInfo struct {
	UID         looseInt       `json:"uid"`
	SessionID   looseString    `json:"session_id"`
	Name        looseString    `json:"name"`
	Username    looseString    `json:"username"`
	PartnerID   looseInt       `json:"partner_id"`
	IsAdmin     bool           `json:"is_admin"`
	UserContext map[string]any `json:"user_context"`
}

type callParams struct {
	Model  string         `json:"model"`
	Method string         `json:"method"`
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

type authParams struct {
	DB       string `json:"db"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

// eventRecord is the slice of a calendar event the scheduler reads.
type eventRecord struct {
	ID       int64       `json:"id"`
	Name     looseString `json:"name"`
	Start    Datetime    `json:"start"`
	Stop     Datetime    `json:"stop"`
	Location looseString `json:"location"`
}

var jsonFalse = []byte("false")
var jsonNull = []byte("null")

// looseInt decodes a backend integer that may be false or null.
type looseInt int

func (v *looseInt) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, jsonFalse) || bytes.Equal(data, jsonNull) {
		*v = 0
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode loose int: %w", err)
	}
	*v = looseInt(n)
	return nil
}

// looseString decodes a backend string that may be false or null.
type looseString string

func (v *looseString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, jsonFalse) || bytes.Equal(data, jsonNull) {
		*v = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode loose string: %w", err)
	}
	*v = looseString(s)
	return nil
}

// Datetime decodes the backend's naive UTC timestamp format. A false or
// null value decodes to the zero time.
type Datetime struct {
	time.Time
}

func (d *Datetime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, jsonFalse) || bytes.Equal(data, jsonNull) {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode datetime: %w", err)
	}
	t, err := time.ParseInLocation(DatetimeLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("parse datetime %q: %w", s, err)
	}
	d.Time = t
	return nil
}

func (d Datetime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.UTC().Format(DatetimeLayout))
}

// FormatDatetime renders t in the backend's wire format.
func FormatDatetime(t time.Time) string {
	return t.UTC().Format(DatetimeLayout)
}
