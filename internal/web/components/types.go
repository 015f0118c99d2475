package components

// UnitData is the display model for one unit on the live map list.
type UnitData struct {
	UnitID      string
	DisplayName string
	Latitude    float64
	Longitude   float64
	LastSeen    string
	Lost        bool
}

// AlertData is one lost-signal entry shown beside the map.
type AlertData struct {
	UnitID      string
	DisplayName string
	At          string
}

// MessageData is the display model for one message in the live feed.
type MessageData struct {
	ID       int64
	Title    string
	Body     string
	Sender   string
	Target   string
	Priority string
	IsRead   bool
	SentAt   string
}
