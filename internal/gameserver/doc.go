// Package gameserver runs the agent population: it spawns and despawns agents,
// feeds host damage and death events to them in tick order, schedules
// respawns, keeps arenas stocked, and drives everything from a fixed-rate
// tick loop.
package gameserver
