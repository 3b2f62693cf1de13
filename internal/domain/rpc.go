package domain

// RPCRequest describes one remote model-method invocation. Requests are
// built per call and never persisted.
type RPCRequest struct {
	Model  string
	Method string
	Args   []any
	Kwargs map[string]any
}
