// Package all links every sensor kind into the device registry.
package all

import (
	_ "sensorhal-go/services/hal/devices/accel"
	_ "sensorhal-go/services/hal/devices/geomag"
	_ "sensorhal-go/services/hal/devices/gyro"
	_ "sensorhal-go/services/hal/devices/gyrouncal"
	_ "sensorhal-go/services/hal/devices/hrm"
	_ "sensorhal-go/services/hal/devices/hrmraw"
	_ "sensorhal-go/services/hal/devices/light"
	_ "sensorhal-go/services/hal/devices/pressure"
	_ "sensorhal-go/services/hal/devices/proxi"
)
