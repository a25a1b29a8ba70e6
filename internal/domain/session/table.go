package session

import (
	"fmt"

	"github.com/GriffinCanCode/chatstream/internal/shared/id"
	"github.com/GriffinCanCode/chatstream/internal/shared/types"
	"github.com/GriffinCanCode/chatstream/internal/ws"
)

// connKey identifies a table entry: a conversation id, or a bootstrap
// connection that has no id yet
type connKey struct {
	session   types.ConversationID
	bootstrap id.ConnectionID
}

func sessionKey(sid types.ConversationID) connKey {
	return connKey{session: sid}
}

func bootstrapKey(conn *ws.Connection) connKey {
	return connKey{bootstrap: conn.ID()}
}

func (k connKey) String() string {
	if k.bootstrap != "" {
		return "bootstrap:" + k.bootstrap.String()
	}
	return k.session.String()
}

// connTable maps keys to connections and holds at most one entry
type connTable struct {
	entries map[connKey]*ws.Connection
}

func newConnTable() *connTable {
	return &connTable{entries: make(map[connKey]*ws.Connection)}
}

func (t *connTable) put(key connKey, conn *ws.Connection) error {
	if len(t.entries) > 0 {
		return fmt.Errorf("%w: adding %s", ErrTableOccupied, key)
	}
	t.entries[key] = conn
	return nil
}

func (t *connTable) lookup(key connKey) (*ws.Connection, bool) {
	conn, ok := t.entries[key]
	return conn, ok
}

// rebind moves the entry under from to to
func (t *connTable) rebind(from, to connKey) bool {
	conn, ok := t.entries[from]
	if !ok {
		return false
	}
	delete(t.entries, from)
	t.entries[to] = conn
	return true
}

func (t *connTable) evict(conn *ws.Connection) {
	for k, c := range t.entries {
		if c == conn {
			delete(t.entries, k)
		}
	}
}

func (t *connTable) len() int {
	return len(t.entries)
}
