package accessory

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/brutella/hc/log"
	"github.com/brutella/hc/util"
	"github.com/google/uuid"
)

// Namespace scopes the name-based accessory UUIDs to this bridge
var Namespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("almond-homekit.cloudkucooland.github.com"))

// BridgeAID is the accessory id of the bridge itself; hc reserves 1
const BridgeAID uint64 = 1

const recordsKey = "accessories.json"

// Record is what the bridge remembers about an accessory between runs
type Record struct {
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	DeviceID string `json:"deviceId"`
	AID      uint64 `json:"aid"`
}

// UUIDForDevice derives the accessory UUID of a hub device; the same id
// always gives the same UUID.
func UUIDForDevice(id string) string {
	return uuid.NewSHA1(Namespace, []byte("device:"+id)).String()
}

// AIDForUUID derives a preferred accessory id from a UUID. It is never the
// bridge's id; collisions are resolved by the caller.
func AIDForUUID(u string) uint64 {
	parsed, err := uuid.Parse(u)
	if err != nil {
		parsed = uuid.NewSHA1(Namespace, []byte(u))
	}
	aid := uint64(binary.BigEndian.Uint32(parsed[:4]))
	if aid <= BridgeAID {
		aid += BridgeAID + 1
	}
	return aid
}

// Records is the persisted accessory list, keyed by UUID
type Records map[string]Record

// LoadRecords reads the accessory list from hc's storage. A missing list is empty.
func LoadRecords(s util.Storage) (Records, error) {
	recs := make(Records)
	raw, err := s.Get(recordsKey)
	if err != nil || len(raw) == 0 {
		return recs, nil
	}
	var list []Record
	if err := json.Unmarshal(raw, &list); err != nil {
		return recs, fmt.Errorf("accessory records: %w", err)
	}
	for _, r := range list {
		recs[r.UUID] = r
	}
	return recs, nil
}

// Save writes the list back, sorted by aid so the file diffs cleanly
func (r Records) Save(s util.Storage) error {
	list := r.Sorted()
	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if err := s.Set(recordsKey, raw); err != nil {
		log.Info.Printf("unable to save accessory records: %s", err.Error())
		return err
	}
	return nil
}

// Sorted returns the records ordered by aid
func (r Records) Sorted() []Record {
	list := make([]Record, 0, len(r))
	for _, rec := range r {
		list = append(list, rec)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].AID < list[j].AID })
	return list
}

// Assign returns the record for u, creating one with a free aid if needed
func (r Records) Assign(u, name, deviceID string) Record {
	if rec, ok := r[u]; ok {
		rec.Name = name
		if deviceID != "" {
			rec.DeviceID = deviceID
		}
		r[u] = rec
		return rec
	}
	used := make(map[uint64]bool, len(r))
	for _, rec := range r {
		used[rec.AID] = true
	}
	aid := AIDForUUID(u)
	for used[aid] || aid <= BridgeAID {
		aid++
	}
	rec := Record{UUID: u, Name: name, DeviceID: deviceID, AID: aid}
	r[u] = rec
	return rec
}
