package domain

import "time"

// Plan es el nivel de suscripción de un usuario.
type Plan string

const (
	PlanFree          Plan = "free"
	PlanRetailIndia   Plan = "retail_india"
	PlanInternational Plan = "international"
	PlanEnterprise    Plan = "enterprise"
)

// UnlimitedCredits representa el uso ilimitado de los planes pagos.
const UnlimitedCredits = 999999

// Plans lista los valores válidos de suscripción.
func Plans() []Plan {
	return []Plan{PlanFree, PlanRetailIndia, PlanInternational, PlanEnterprise}
}

// ParsePlan valida un nombre de plan recibido desde el cliente.
func ParsePlan(raw string) (Plan, bool) {
	for _, p := range Plans() {
		if string(p) == raw {
			return p, true
		}
	}
	return "", false
}

func (p Plan) IsPaid() bool {
	return p != PlanFree
}

type UsageEntry struct {
	Feature string    `json:"feature"`
	UsedAt  time.Time `json:"usedAt"`
}

type User struct {
	ID                 string       `json:"id"`
	FullName           string       `json:"fullName"`
	Email              string       `json:"email"`
	PasswordHash       string       `json:"-"`
	IsEmailVerified    bool         `json:"isEmailVerified"`
	VerificationToken  *string      `json:"-"`
	SubscriptionStatus Plan         `json:"subscriptionStatus"`
	UsageCredits       int          `json:"usageCredits"`
	UsageHistory       []UsageEntry `json:"usageHistory,omitempty"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// PublicUser es la vista del usuario que se expone en las respuestas HTTP.
type PublicUser struct {
	ID                 string `json:"id"`
	FullName           string `json:"fullName"`
	Email              string `json:"email"`
	IsEmailVerified    bool   `json:"isEmailVerified"`
	SubscriptionStatus Plan   `json:"subscriptionStatus"`
	UsageCredits       int    `json:"usageCredits"`
}

// PublicProfile es la vista de /auth/me: siempre incluye el historial, aunque esté vacío.
type PublicProfile struct {
	PublicUser
	UsageHistory []UsageEntry `json:"usageHistory"`
}

// Public devuelve la vista redactada sin historial de uso.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:                 u.ID,
		FullName:           u.FullName,
		Email:              u.Email,
		IsEmailVerified:    u.IsEmailVerified,
		SubscriptionStatus: u.SubscriptionStatus,
		UsageCredits:       u.UsageCredits,
	}
}

// PublicWithHistory incluye el historial; usada por /auth/me.
func (u User) PublicWithHistory() PublicProfile {
	history := u.UsageHistory
	if history == nil {
		history = []UsageEntry{}
	}
	return PublicProfile{PublicUser: u.Public(), UsageHistory: history}
}

// HasPendingVerification indica si existe un token de verificación vigente.
func (u User) HasPendingVerification() bool {
	return u.VerificationToken != nil && *u.VerificationToken != ""
}
