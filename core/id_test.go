package core

import (
	"encoding/json"
	"testing"
)

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    ID
		wantErr bool
	}{
		{in: `"c-1"`, want: "c-1"},
		{in: `42`, want: "42"},
		{in: ` 7 `, want: "7"},
		{in: `1.5`, want: "1.5"},
		{in: `null`, want: ""},
		{in: `true`, wantErr: true},
	}
	for _, tt := range tests {
		var got struct {
			ID ID `json:"id"`
		}
		err := json.Unmarshal([]byte(`{"id": `+tt.in+`}`), &got)
		if (err != nil) != tt.wantErr {
			t.Errorf("UnmarshalJSON(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got.ID != tt.want {
			t.Errorf("UnmarshalJSON(%s) = %q, want %q", tt.in, got.ID, tt.want)
		}
	}
}
