package bot

import (
	"reflect"
	"testing"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()

	tests := []struct {
		text      string
		cmd       string
		args      []string
		isCommand bool
	}{
		{"/start", "start", nil, true},
		{"/register alice secret123", "register", []string{"alice", "secret123"}, true},
		{"/register inv_abcdefghij alice secret123", "register", []string{"inv_abcdefghij", "alice", "secret123"}, true},
		{"/buy_3", "buy_3", nil, true},
		{"/daily@mediabot", "daily", nil, true},
		{"  /SHOP  ", "shop", nil, true},
		{"привет", "", nil, false},
		{"/", "", nil, false},
		{"", "", nil, false},
	}

	for _, tt := range tests {
		cmd, args, isCommand := p.ParseCommand(tt.text)
		if cmd != tt.cmd || isCommand != tt.isCommand || !reflect.DeepEqual(args, tt.args) {
			t.Errorf("ParseCommand(%q) = (%q, %v, %v), ожидалось (%q, %v, %v)",
				tt.text, cmd, args, isCommand, tt.cmd, tt.args, tt.isCommand)
		}
	}
}
