package protocol

import (
	"encoding/json"
	"testing"
)

func TestResponseFrameShape(t *testing.T) {
	ok := NewResponse("1", map[string]int{"n": 1})
	data, err := json.Marshal(ok)
	if err != nil {
		t.Fatal(err)
	}
	var decoded ResponseFrame
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if !decoded.OK || decoded.ID != "1" || decoded.Error != nil {
		t.Errorf("decoded = %+v", decoded)
	}

	fail := NewErrorResponse("2", ErrCodeUnknownSession, "unknown session web:x")
	data, _ = json.Marshal(fail)
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.OK || decoded.Error == nil || decoded.Error.Code != ErrCodeUnknownSession {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestRequestFrameParamsDeferred(t *testing.T) {
	// Params stay raw until the method handler picks a schema.
	raw := []byte(`{"type":"req","id":"9","method":"chat.send","params":{"content":"hi"}}`)

	var req RequestFrame
	if err := json.Unmarshal(raw, &req); err != nil {
		t.Fatal(err)
	}
	if req.Method != "chat.send" {
		t.Errorf("method = %q", req.Method)
	}

	var params struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		t.Fatal(err)
	}
	if params.Content != "hi" {
		t.Errorf("content = %q", params.Content)
	}
}
