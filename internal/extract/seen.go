// Package extract turns fetched documents and decoded payloads into normalized records.
package extract

// SeenKeys is the identity-key set owned by one logical request.
// It is threaded through every extraction call of that request and discarded afterwards.
type SeenKeys map[string]struct{}

func NewSeenKeys() SeenKeys { return make(SeenKeys) }

func (s SeenKeys) Has(k string) bool {
	_, ok := s[k]
	return ok
}

func (s SeenKeys) Add(k string) { s[k] = struct{}{} }
