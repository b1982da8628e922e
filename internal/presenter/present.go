package presenter

import (
	"time"

	"github.com/studysync/studysync-cli/internal/models"
)

// Presenter builds display rows. Row keys become table headers, so they
// are short human words rather than JSON field names.
type Presenter struct {
	Locale Locale
	now    func() time.Time
}

// New returns a presenter for loc.
func New(loc Locale) *Presenter {
	return &Presenter{Locale: loc, now: time.Now}
}

// Row is one rendered entity.
type Row = map[string]any

func (p *Presenter) when(t time.Time) string {
	return p.Locale.RelativeTime(t, p.now())
}

// User renders a profile.
func (p *Presenter) User(u *models.User) Row {
	row := Row{
		"id":    u.ID.String(),
		"name":  u.Name,
		"email": u.Email,
		"role":  u.Role,
	}
	if u.IsActive != nil {
		row["active"] = *u.IsActive
	}
	if !u.CreatedAt.IsZero() {
		row["joined"] = p.Locale.FormatDate(u.CreatedAt)
	}
	return row
}

// Users renders a user list.
func (p *Presenter) Users(users []models.User) []Row {
	rows := make([]Row, len(users))
	for i := range users {
		rows[i] = p.User(&users[i])
	}
	return rows
}

// Groups renders a group list.
func (p *Presenter) Groups(groups []models.Group) []Row {
	rows := make([]Row, len(groups))
	for i, g := range groups {
		visibility := "public"
		if g.IsPrivate {
			visibility = "private"
		}
		rows[i] = Row{
			"id":      g.ID.String(),
			"name":    g.Name,
			"subject": g.Subject,
			"members": g.MemberCount,
			"access":  visibility,
		}
	}
	return rows
}

// Members renders group members.
func (p *Presenter) Members(members []models.Member) []Row {
	rows := make([]Row, len(members))
	for i, m := range members {
		rows[i] = Row{
			"id":     m.User.ID.String(),
			"name":   m.User.Name,
			"role":   m.Role,
			"joined": p.when(m.JoinedAt),
		}
	}
	return rows
}

// Files renders shared files.
func (p *Presenter) Files(files []models.File) []Row {
	rows := make([]Row, len(files))
	for i, f := range files {
		row := Row{
			"id":       f.ID.String(),
			"name":     f.Name,
			"size":     FormatBytes(f.Size),
			"uploaded": p.when(f.CreatedAt),
		}
		if f.UploadedBy != nil {
			row["by"] = f.UploadedBy.Name
		}
		rows[i] = row
	}
	return rows
}

// Messages renders chat history, oldest first as returned.
func (p *Presenter) Messages(msgs []models.Message) []Row {
	rows := make([]Row, len(msgs))
	for i, m := range msgs {
		from := ""
		if m.Sender != nil {
			from = m.Sender.Name
		}
		rows[i] = Row{
			"id":      m.ID.String(),
			"from":    from,
			"message": Truncate(m.Content, 80),
			"sent":    p.when(m.CreatedAt),
		}
	}
	return rows
}

// AISessions renders assistant sessions.
func (p *Presenter) AISessions(sessions []models.AISession) []Row {
	rows := make([]Row, len(sessions))
	for i, s := range sessions {
		rows[i] = Row{
			"id":      s.ID.String(),
			"title":   s.Title,
			"updated": p.when(s.UpdatedAt),
		}
	}
	return rows
}

// Plans renders plans with localized prices.
func (p *Presenter) Plans(plans []models.Plan) []Row {
	rows := make([]Row, len(plans))
	for i, pl := range plans {
		rows[i] = Row{
			"id":    pl.ID.String(),
			"name":  pl.Name,
			"price": p.Locale.FormatMoney(pl.Price, pl.Currency),
			"days":  pl.DurationDays,
		}
	}
	return rows
}

// Transaction renders a payment record.
func (p *Presenter) Transaction(t *models.Transaction) Row {
	row := Row{
		"order":  t.OrderCode,
		"status": StatusLabel(t.Status),
		"amount": p.Locale.FormatMoney(t.Amount, ""),
	}
	if t.Plan != nil {
		row["plan"] = t.Plan.Name
	}
	if t.PaidAt != nil {
		row["paid"] = p.Locale.FormatDate(*t.PaidAt)
	}
	return row
}

// Subscription renders the caller's plan status.
func (p *Presenter) Subscription(s *models.Subscription) Row {
	row := Row{
		"status":  StatusLabel(s.Status),
		"started": p.Locale.FormatDate(s.StartDate),
		"ends":    p.Locale.FormatDate(s.EndDate),
	}
	if s.Plan != nil {
		row["plan"] = s.Plan.Name
	}
	return row
}

// Reviews renders moderation items.
func (p *Presenter) Reviews(reviews []models.Review) []Row {
	rows := make([]Row, len(reviews))
	for i, r := range reviews {
		row := Row{
			"id":      r.ID.String(),
			"status":  StatusLabel(r.Status),
			"created": p.when(r.CreatedAt),
		}
		if r.File != nil {
			row["file"] = r.File.Name
		}
		rows[i] = row
	}
	return rows
}

// Stats renders admin totals.
func (p *Presenter) Stats(s *models.AdminStats) Row {
	n := func(v int) string { return p.Locale.FormatNumber(float64(v)) }
	return Row{
		"users":         n(s.Users),
		"groups":        n(s.Groups),
		"files":         n(s.Files),
		"subscriptions": n(s.Subscriptions),
		"revenue":       p.Locale.FormatMoney(s.Revenue, ""),
	}
}
