package modes

import "pkt.systems/opsdeck/core"

// NewRegistry assembles every mode in navigation order. PREV/NEXT cycle
// through this list; system first, informational screens last.
func NewRegistry(env Env, alertJournalPath string) (*core.Registry, error) {
	return core.NewRegistry(
		NewSystemMode(env),
		NewNetworkMode(env),
		NewNmapMode(env),
		NewWiFiMode(env),
		NewResponderMode(env),
		NewMITMMode(env),
		NewShellsMode(env),
		NewUSBMode(env),
		NewProcessesMode(env),
		NewLootMode(env),
		NewProfilesMode(env),
		NewToolsMode(env),
		NewAlertsMode(env, alertJournalPath),
	)
}
