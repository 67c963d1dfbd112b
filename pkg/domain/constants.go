package domain

// Graph limits and defaults shared by the editor, the adapter and the runtime.
const (
	// MaxOptionsPerNode caps the authored options of a single node.
	MaxOptionsPerNode = 5

	// MinNodesPerBot is the floor enforced by node deletion.
	MinNodesPerBot = 1

	DefaultNodeTitle    = "New Node"
	DefaultNodeMessage  = "Enter your message here"
	DefaultOptionLabel  = "New Option"
	FallbackOptionLabel = "Option"

	// WelcomeNodeID identifies the node synthesized for an empty server payload.
	WelcomeNodeID      = "node-1"
	WelcomeNodeTitle   = "Welcome"
	WelcomeNodeMessage = "Welcome! How can I help you today?"

	// DefaultInputKey is the context key used by a freshly defaulted input executor.
	DefaultInputKey = "input"
	// DefaultRetryLimit is the retry limit of a freshly defaulted input executor.
	DefaultRetryLimit = 3
)

// Reserved option ids for the affordances injected by the runtime.
// Authored option ids never start with a double underscore.
const (
	BackOptionID = "__back"
	EndOptionID  = "__end"

	BackOptionLabel = "Back"
	EndOptionLabel  = "End conversation"
)

// SessionHeader is the header (and cookie) name carrying the session identifier.
const SessionHeader = "SessionId"
