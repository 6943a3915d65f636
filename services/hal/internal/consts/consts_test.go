package consts

import "testing"

func TestTokens(t *testing.T) {
	if TokHAL != "hal" || TokSensor != "sensor" || TokValue != "value" {
		t.Fatal("topic tokens changed unexpectedly")
	}
	if CtrlEnable != "enable" || CtrlInterval != "interval" {
		t.Fatal("control tokens changed unexpectedly")
	}
}
