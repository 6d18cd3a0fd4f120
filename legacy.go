package remotecoll

import (
	"encoding/json"

	"github.com/unkn0wn-root/remotecoll/loading"
)

// legacyDocument is the flat shape written by older releases: the default
// view lives in knownIds, named views in idMap, and no identity property is
// recorded.
type legacyDocument[V any] struct {
	Type     string                             `json:"_type"`
	KnownIDs loading.Value[[]string]            `json:"knownIds"`
	IDMap    map[string]loading.Value[[]string] `json:"idMap"`
	Entities map[string]loading.Value[V]        `json:"entities"`
}

func isLegacy(probe map[string]json.RawMessage) bool {
	var typ string
	if raw, ok := probe["_type"]; !ok || json.Unmarshal(raw, &typ) != nil || typ != DocumentType {
		return false
	}
	for _, k := range [...]string{"knownIds", "idMap", "entities"} {
		if _, ok := probe[k]; !ok {
			return false
		}
	}
	return true
}

func (l legacyDocument[V]) upgrade() Document[V] {
	views := make(map[string]loading.Value[[]string], len(l.IDMap)+1)
	if !l.KnownIDs.IsInitial() {
		views[DefaultView] = l.KnownIDs
	}
	for k, v := range l.IDMap {
		views[k] = v
	}
	entities := l.Entities
	if entities == nil {
		entities = map[string]loading.Value[V]{}
	}
	return Document[V]{
		Type:     DocumentType,
		Views:    views,
		Entities: entities,
	}
}
