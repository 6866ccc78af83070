package domain

// LeadToken is the opaque handle returned by lead creation. It associates the
// later appointment with the lead and becomes the session cookie value.
type LeadToken string

// LeadAnswers is the record accumulated over the conversation. Fields are set
// in step order.
type LeadAnswers struct {
	Name            string `json:"name,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Email           string `json:"email,omitempty"`
	CompanyName     string `json:"companyName,omitempty"`
	Segment         string `json:"segment,omitempty"`
	ProductInterest string `json:"productInterest,omitempty"`
	RevenueBand     string `json:"revenueBand,omitempty"`
	Headcount       string `json:"headcount,omitempty"`
	AppointmentDate Date   `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime,omitempty"`
}

// Contact holds the answers of the first three steps.
type Contact struct {
	Name  string
	Phone string
	Email string
}

// LeadIdentity is what lead creation needs: contact data plus company name.
type LeadIdentity struct {
	Contact
	CompanyName string
}

// QualifiedLead is the complete answer set sent by the lead update.
type QualifiedLead struct {
	LeadIdentity
	Segment         string
	ProductInterest string
	RevenueBand     string
	Headcount       string
}

type CreatedLead struct {
	Token  LeadToken
	LeadID string
}

// Contact returns the contact part of the answers.
func (a LeadAnswers) Contact() Contact {
	return Contact{Name: a.Name, Phone: a.Phone, Email: a.Email}
}
