package tracker

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"

	"github.com/australsec/opswatch/pkg/auth"
	"github.com/australsec/opswatch/pkg/models"
	"github.com/australsec/opswatch/pkg/store"
)

// FixTopicPrefix is the topic tree field devices publish GPS fixes to,
// one subtopic per unit id.
const FixTopicPrefix = "opswatch/fix/"

// Fix is the JSON payload a field device publishes.
type Fix struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DeviceFeedOptions contains configuration settings for the hook.
type DeviceFeedOptions struct {
	Identities store.IdentityStore
}

// DeviceFeed is the broker hook that turns published device fixes into
// the live coordinate source preferred by reporters. Devices
// authenticate with their console credentials and may only publish
// fixes for their own unit.
type DeviceFeed struct {
	mqtt.HookBase
	config *DeviceFeedOptions

	mu     sync.RWMutex
	latest map[uuid.UUID]Fix
	units  map[string]uuid.UUID // client id -> authenticated unit
}

func (h *DeviceFeed) ID() string {
	return "device-fix-feed"
}

func (h *DeviceFeed) Provides(b byte) bool {
	return bytes.Contains([]byte{
		mqtt.OnConnectAuthenticate,
		mqtt.OnACLCheck,
		mqtt.OnPublish,
		mqtt.OnDisconnect,
	}, []byte{b})
}

func (h *DeviceFeed) Init(config any) error {
	h.Log.Info("initialised")
	if _, ok := config.(*DeviceFeedOptions); !ok && config != nil {
		return mqtt.ErrInvalidConfigType
	}
	h.config = config.(*DeviceFeedOptions)
	if h.config.Identities == nil {
		return mqtt.ErrInvalidConfigType
	}
	h.latest = make(map[uuid.UUID]Fix)
	h.units = make(map[string]uuid.UUID)
	return nil
}

// OnConnectAuthenticate validates the device's console credentials and
// requires an active guard or control identity.
func (h *DeviceFeed) OnConnectAuthenticate(cl *mqtt.Client, pk packets.Packet) bool {
	user := string(pk.Connect.Username)
	pass := string(pk.Connect.Password)

	identity, err := h.config.Identities.GetByUserName(user)
	if err != nil {
		h.Log.Error("unable to query identity", "hook", h.ID(), "user", user, "error", err)
		return false
	}
	if identity == nil || !identity.IsActive() || !identity.MayReportPosition() {
		return false
	}
	if !auth.VerifyPassword(pass, identity.Salt, identity.PasswordHash) {
		return false
	}

	h.mu.Lock()
	h.units[cl.ID] = identity.ID
	h.mu.Unlock()
	h.Log.Info("device authenticated", "username", user, "client", cl.ID, "unit", identity.ID)
	return true
}

// OnACLCheck restricts each device to writing its own fix subtopic.
func (h *DeviceFeed) OnACLCheck(cl *mqtt.Client, topic string, write bool) bool {
	if !write {
		return false
	}
	h.mu.RLock()
	unit, ok := h.units[cl.ID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return topic == FixTopicPrefix+unit.String()
}

func (h *DeviceFeed) OnPublish(cl *mqtt.Client, pk packets.Packet) (packets.Packet, error) {
	if !strings.HasPrefix(pk.TopicName, FixTopicPrefix) {
		return pk, nil
	}

	unit, err := uuid.Parse(strings.TrimPrefix(pk.TopicName, FixTopicPrefix))
	if err != nil {
		h.Log.Warn("fix topic carries no unit id", "client", cl.ID, "topic", pk.TopicName)
		return pk, nil
	}

	// An identity deactivated mid-session stops feeding the map even
	// though its broker connection is still up. Cached, so this stays
	// cheap per packet.
	rs, err := h.config.Identities.GetRoleStatus(unit)
	if err != nil || rs == nil || rs.Status != models.StatusActive {
		return pk, nil
	}

	var fix Fix
	if err := json.Unmarshal(pk.Payload, &fix); err != nil {
		h.Log.Warn("discarding malformed fix payload", "client", cl.ID, "error", err)
		return pk, nil
	}

	h.mu.Lock()
	h.latest[unit] = fix
	h.mu.Unlock()
	return pk, nil
}

func (h *DeviceFeed) OnDisconnect(cl *mqtt.Client, err error, expire bool) {
	h.mu.Lock()
	delete(h.units, cl.ID)
	h.mu.Unlock()
}

// Latest returns the unit's most recent device fix, if any.
func (h *DeviceFeed) Latest(unitID uuid.UUID) (Fix, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fix, ok := h.latest[unitID]
	return fix, ok
}

// HasFix reports whether a device has published at least one fix for
// the unit. Reporters use this once at startup to pick their source.
func (h *DeviceFeed) HasFix(unitID uuid.UUID) bool {
	_, ok := h.Latest(unitID)
	return ok
}
