package domain

// SessionData is what a valid session token unlocks on the confirmation view.
type SessionData struct {
	LeadID          string `json:"leadId"`
	Name            string `json:"name"`
	BusinessName    string `json:"businessName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
}
