package power

import "testing"

func TestDecodeStatus(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		want    StatusUpdate
		wantOK  bool
	}{
		{"on", "stat/node-0/power", "ON", StatusUpdate{"node-0", StateOn}, true},
		{"off", "stat/node-0/power", "OFF", StatusUpdate{"node-0", StateOff}, true},
		{"trimmed", "stat/lamp/power", "  OFF\r\n", StatusUpdate{"lamp", StateOff}, true},
		{"lowercase payload", "stat/node-0/power", "on", StatusUpdate{}, false},
		{"pending payload", "stat/node-0/power", "PENDING", StatusUpdate{}, false},
		{"empty payload", "stat/node-0/power", "", StatusUpdate{}, false},
		{"json payload", "stat/node-0/power", `{"state":"ON"}`, StatusUpdate{}, false},
		{"command topic", "cmd/node-0/power", "ON", StatusUpdate{}, false},
		{"wrong suffix", "stat/node-0/energy", "ON", StatusUpdate{}, false},
		{"too few segments", "stat/power", "ON", StatusUpdate{}, false},
		{"too many segments", "stat/a/b/power", "ON", StatusUpdate{}, false},
		{"empty device id", "stat//power", "ON", StatusUpdate{}, false},
		{"unrelated topic", "powerd/system/status", "ON", StatusUpdate{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeStatus(tt.topic, []byte(tt.payload))
			if ok != tt.wantOK {
				t.Fatalf("DecodeStatus() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("DecodeStatus() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTopicBuilders(t *testing.T) {
	if got := StatusTopic("node-0"); got != "stat/node-0/power" {
		t.Errorf("StatusTopic() = %q", got)
	}
	if got := CommandTopic("node-0"); got != "cmd/node-0/power" {
		t.Errorf("CommandTopic() = %q", got)
	}
	if StatusTopicPattern != "stat/+/power" {
		t.Errorf("StatusTopicPattern = %q", StatusTopicPattern)
	}
	if CommandTopicPattern != "cmd/+/power" {
		t.Errorf("CommandTopicPattern = %q", CommandTopicPattern)
	}
}

func TestDeviceIDFromTopic(t *testing.T) {
	id, ok := DeviceIDFromTopic("cmd/node-7/power", CommandTopicPrefix)
	if !ok || id != "node-7" {
		t.Errorf("DeviceIDFromTopic() = (%q, %v), want (node-7, true)", id, ok)
	}
	if _, ok := DeviceIDFromTopic("cmd/node-7/power", StatusTopicPrefix); ok {
		t.Error("DeviceIDFromTopic() matched the wrong prefix")
	}
}

func TestEncodeAction(t *testing.T) {
	on, err := EncodeAction(ActionOn)
	if err != nil || string(on) != "ON" {
		t.Errorf("EncodeAction(On) = (%q, %v)", on, err)
	}
	off, err := EncodeAction(ActionOff)
	if err != nil || string(off) != "OFF" {
		t.Errorf("EncodeAction(Off) = (%q, %v)", off, err)
	}
	if _, err := EncodeAction(""); err == nil {
		t.Error("EncodeAction(\"\") expected error")
	}
}
