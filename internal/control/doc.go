// Package control provides the feedback controller that flies the lander.
//
// [PID] is stepped once per simulation tick with the current altitude and
// returns a raw output that the lander scales into a throttle command:
//
//	pid := control.NewPID(0.5, 0.1, 0.2, 0) // Kp, Ki, Kd, target altitude
//	out := pid.Update(altitude)
//
// Gains are swapped all at once with [PID.SetGains]; the integral and the
// previous error carry over.
package control
