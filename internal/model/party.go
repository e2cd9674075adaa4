package model

// Client is a retail buyer, optionally attached to the commercial who handles them.
type Client struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PhoneNumber  string `json:"phone_number"`
	Email        string `json:"email,omitempty"`
	Wilaya       string `json:"wilaya"`
	Address      string `json:"address"`
	CommercialID *int64 `json:"commercial_id,omitempty"`
}

// FullName joins first and last names.
func (c Client) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// WholesaleClient is a company buying cars in bulk.
type WholesaleClient struct {
	Client
	CompanyName string `json:"company_name"`
}

// Supplier sells cars to the dealership.
type Supplier struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email,omitempty"`
	Country     string `json:"country"`
	Address     string `json:"address"`
}

// Staff holds the fields shared by every staff record.
type Staff struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email,omitempty"`
}

// FullName joins first and last names.
func (s Staff) FullName() string {
	return Client{FirstName: s.FirstName, LastName: s.LastName}.FullName()
}

// Commercial is a salesperson; Wilayas is their sales territory.
type Commercial struct {
	Staff
	Wilayas []string `json:"wilayas"`
}

// Marketer manages the dealership's social presence.
type Marketer struct {
	Staff
}

// Accountant reviews payments, expenses and earnings.
type Accountant struct {
	Staff
}

// SocialLink is a public link managed by marketers.
type SocialLink struct {
	ID       int64  `json:"id"`
	Platform string `json:"platform"`
	URL      string `json:"url"`
}
