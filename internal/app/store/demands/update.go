package demandstore

import (
	"reflect"
	"time"

	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
)

// Update is a partial write to a demand. Set keys are bson field names.
// Entries whose value is nil (including typed nil pointers) are dropped
// before writing so absent values never reach the store.
type Update struct {
	Set       map[string]any
	Unset     []string
	Push      []models.AuditEvent
	UpdatedBy string
}

// Compact returns the Set entries that carry a value, minus fields listed
// in Unset.
func (u Update) Compact() bson.M {
	out := bson.M{}
	for k, v := range u.Set {
		if isAbsent(v) {
			continue
		}
		out[k] = v
	}
	for _, k := range u.Unset {
		delete(out, k)
	}
	return out
}

func (u Update) document(now time.Time) bson.M {
	set := u.Compact()
	set["updated_at"] = now
	if u.UpdatedBy != "" {
		set["updated_by"] = u.UpdatedBy
	}

	doc := bson.M{"$set": set}
	if len(u.Unset) > 0 {
		unset := bson.M{}
		for _, k := range u.Unset {
			unset[k] = ""
		}
		doc["$unset"] = unset
	}
	if len(u.Push) > 0 {
		doc["$push"] = bson.M{"history": bson.M{"$each": u.Push}}
	}
	return doc
}

// Apply returns d with u applied the way the store applies it. It goes
// through a BSON round trip so field names match the stored document.
func Apply(d models.Demand, u Update, now time.Time) (models.Demand, error) {
	raw, err := bson.Marshal(d)
	if err != nil {
		return models.Demand{}, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return models.Demand{}, err
	}

	for k, v := range u.Compact() {
		m[k] = v
	}
	for _, k := range u.Unset {
		delete(m, k)
	}
	m["updated_at"] = now
	if u.UpdatedBy != "" {
		m["updated_by"] = u.UpdatedBy
	}

	if raw, err = bson.Marshal(m); err != nil {
		return models.Demand{}, err
	}
	var out models.Demand
	if err := bson.Unmarshal(raw, &out); err != nil {
		return models.Demand{}, err
	}
	out.History = append(out.History, u.Push...)
	return out, nil
}

func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
