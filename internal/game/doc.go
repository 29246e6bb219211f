// Package game implements server-authoritative blackjack rooms.
//
// The main types are Registry, which owns every live room keyed by id, and
// Room, which runs one game through its phases:
//
//	waiting → betting → action → dealer → result → (betting | finished)
//
// Player events arrive through the Registry with the caller's connection id.
// Deadlines and countdowns are driven by a quartz.Clock so that tests can
// replace wall time with quartz.NewMock.
//
// # Basic Usage
//
//	reg := game.NewRegistry(broadcaster, logger)
//	_ = reg.Create("conn-1", "table1", "Alice")
//	_ = reg.Join("conn-2", "table1", "Bob")
//	_ = reg.Start("conn-1")
//	_ = reg.PlaceBet("conn-1", "table1", 100)
//
// # Concurrency
//
// Each Room serialises its own events and timer callbacks behind a mutex.
// Rooms never share state. The Registry has its own mutex; a Room may call
// into the Registry while holding its lock, never the other way around.
//
// Timers are armed per room and tagged with the room's transition epoch. A
// timer that fires after the room has moved on (or closed) does nothing.
package game
