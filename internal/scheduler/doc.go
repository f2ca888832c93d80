// Package scheduler is the notification state machine.
//
//	Disabled --Enable(granted)--> Idle --Start--> Active
//	Active --Stop--> Idle
//	Idle|Active --Disable--> Disabled
//
// While Active one repeating cron entry calls Tick. Each tick rolls the
// daily counter over on a new calendar day, skips once the daily cap is
// reached, and otherwise generates an order, filters it by the minimum
// amount, dispatches the formatted notification and records the order in the
// history log.
//
// Failures never leave the machine in an undefined state. They are returned
// where the caller can act on them and are always published on the event
// bus as an Advisory.
package scheduler
