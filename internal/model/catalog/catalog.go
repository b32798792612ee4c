package catalog

// EventRef captures the volunteering-event attributes exposed to the frontend
// and referenced by assistant replies.
type EventRef struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	About     string `json:"about,omitempty"`
	Date      string `json:"date"`
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
	City      string `json:"city,omitempty"`
	Address   string `json:"address,omitempty"`
	Capacity  int    `json:"capacity,omitempty"`
	Cause     string `json:"cause,omitempty"`
	Tags      string `json:"tags,omitempty"`
}

// TeamRef captures a volunteering team and the caller's relation to it.
type TeamRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MemberCount int    `json:"memberCount"`
	IsMember    bool   `json:"isMember"`
	IsOwner     bool   `json:"isOwner"`
}

// BadgeRef captures an achievement badge.
type BadgeRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Criteria    string `json:"criteria,omitempty"`
}

// ImpactStats summarises a volunteer's contribution for the dashboard and
// leaderboard views.
type ImpactStats struct {
	UserID           string  `json:"userId"`
	DisplayName      string  `json:"displayName"`
	HoursVolunteered float64 `json:"hoursVolunteered"`
	EventsCompleted  int     `json:"eventsCompleted"`
	BadgesEarned     int     `json:"badgesEarned"`
}
