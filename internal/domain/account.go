package domain

// Credentials are sent to the account service login endpoint.
type Credentials struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	ChallengeToken string `json:"recaptchaToken"`
}

// Registration is the sign-up payload.
type Registration struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	Role           string `json:"rol"`
	ChallengeToken string `json:"recaptchaToken"`
}

type Profile struct {
	UserID      ID     `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Bio         string `json:"bio,omitempty"`
}

// PaymentMethod is a saved card as returned by the account service.
type PaymentMethod struct {
	ID       ID     `json:"id"`
	Holder   string `json:"name"`
	Number   string `json:"numC"`
	Expiry   string `json:"cadC"`
	Provider string `json:"provider"`
}

// Card is a card entered at checkout.
type Card struct {
	Holder   string `json:"name"`
	Number   string `json:"numC"`
	Expiry   string `json:"cadC"`
	CVV      string `json:"cvv"`
	Provider string `json:"provider"`
}
