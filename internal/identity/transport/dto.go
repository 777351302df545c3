package transport

import "time"

type ProfileResponse struct {
	ID              string    `json:"id"`
	OrganizationID  string    `json:"organizationId"`
	Email           string    `json:"email"`
	FullName        string    `json:"fullName"`
	Role            string    `json:"role"`
	CanHostMeetings bool      `json:"canHostMeetings"`
	CreatedAt       time.Time `json:"createdAt"`
}

type ProfileListResponse struct {
	Profiles []ProfileResponse `json:"profiles"`
}
