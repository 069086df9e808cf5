package model

// Room is a point-in-time view of a synchronization group.
// Members keeps insertion order, which is also the display order.
type Room struct {
	Code         string   `json:"room_code"`
	Host         string   `json:"host"`
	Members      []Member `json:"members"`
	CurrentVideo *Video   `json:"current_video,omitempty"`
}

type Member struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
}

type Video struct {
	VideoID   string  `json:"videoId"`
	Timestamp float64 `json:"timestamp"`
}

// Roster returns member display names in join order.
func (r *Room) Roster() []string {
	names := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		names = append(names, m.Name)
	}
	return names
}

// MemberName returns display name of the member and whether it is in the room.
func (r *Room) MemberName(clientID string) (string, bool) {
	for _, m := range r.Members {
		if m.ClientID == clientID {
			return m.Name, true
		}
	}
	return "", false
}

func (r *Room) IsHost(clientID string) bool {
	return clientID != "" && r.Host == clientID
}

// Clone returns a deep copy that is safe to hand out of the directory lock.
func (r *Room) Clone() *Room {
	c := &Room{
		Code:    r.Code,
		Host:    r.Host,
		Members: make([]Member, len(r.Members)),
	}
	copy(c.Members, r.Members)
	if r.CurrentVideo != nil {
		v := *r.CurrentVideo
		c.CurrentVideo = &v
	}
	return c
}

// State builds room-joined/room-created payload for particular member.
func (r *Room) State(clientID string) RoomState {
	return RoomState{
		RoomCode:     r.Code,
		Users:        r.Roster(),
		CurrentVideo: r.CurrentVideo,
		IsHost:       r.IsHost(clientID),
	}
}
