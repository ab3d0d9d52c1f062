package domain

// Command names shared by every transport.
const (
	CommandStart   = "start"
	CommandStop    = "stop"
	CommandAdd     = "add"
	CommandRemove  = "remove"
	CommandGet     = "get"
	CommandUpdate  = "update"
	CommandList    = "list"
	CommandPeriods = "periods"
)

// Params carries the keyword parameters of a command. Transports pass them
// through untouched; the command service decodes them.
type Params map[string]any

// IsKnownCommand reports whether name is one of the command names above.
func IsKnownCommand(name string) bool {
	switch name {
	case CommandStart, CommandStop, CommandAdd, CommandRemove, CommandGet,
		CommandUpdate, CommandList, CommandPeriods:
		return true
	}
	return false
}
