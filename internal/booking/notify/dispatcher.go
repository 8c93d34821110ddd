// Package notify decides who hears about a booking and over which channel,
// and hands the resulting messages to a MessageTransport.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
	"github.com/cuongbtq/booking-core/internal/booking/matching"
	"github.com/cuongbtq/booking-core/internal/booking/timeutil"
	"github.com/cuongbtq/booking-core/internal/metrics"
)

// Config holds dispatcher settings
type Config struct {
	Concurrency int
	SMSSender   string
	PushTitle   string
	Languages   map[int]string
}

// Dispatcher builds and sends push, SMS and email notifications
type Dispatcher struct {
	users     domain.UserDirectory
	engine    *matching.Engine
	transport domain.MessageTransport
	hours     *timeutil.BusinessHours
	clock     domain.Clock
	printers  *Printers
	config    Config
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// Deps groups the collaborators of a Dispatcher
type Deps struct {
	Users     domain.UserDirectory
	Engine    *matching.Engine
	Transport domain.MessageTransport
	Hours     *timeutil.BusinessHours
	Clock     domain.Clock
	Printers  *Printers
	Metrics   metrics.Recorder
	Logger    *slog.Logger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(deps Deps, config Config) *Dispatcher {
	if config.Concurrency <= 0 {
		config.Concurrency = 8
	}
	if config.PushTitle == "" {
		config.PushTitle = "DigitalTolk"
	}
	rec := deps.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Dispatcher{
		users:     deps.Users,
		engine:    deps.Engine,
		transport: deps.Transport,
		hours:     deps.Hours,
		clock:     deps.Clock,
		printers:  deps.Printers,
		config:    config,
		metrics:   rec,
		logger:    deps.Logger,
	}
}

// Summary lists who was pushed immediately and who was deferred
type Summary struct {
	Immediate []int64
	Delayed   []int64
}

// Total is the number of translators notified
func (s Summary) Total() int {
	return len(s.Immediate) + len(s.Delayed)
}

// LanguageName resolves a language id to its display name
func (d *Dispatcher) LanguageName(id int) string {
	if name, ok := d.config.Languages[id]; ok {
		return name
	}
	return strconv.Itoa(id)
}

// Printers exposes the message catalog printers
func (d *Dispatcher) Printers() *Printers {
	return d.printers
}

// recipient is a user together with the push decision made for them
type recipient struct {
	user  domain.User
	delay bool
}

// NotifyTranslatorsOfJob alerts every eligible translator about a pending job.
// data is merged into the push payload. Transport failures are logged only.
func (d *Dispatcher) NotifyTranslatorsOfJob(ctx context.Context, job *domain.Job, data map[string]any, excludeUserID int64) (Summary, error) {
	translators, err := d.users.ActiveTranslators(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load active translators: %w", err)
	}

	owner, err := d.engine.LoadOwner(ctx, job.UserID)
	if err != nil {
		return Summary{}, err
	}

	now := d.clock.Now()
	night := d.hours.IsNightTime(now)
	decisions := make([]*recipient, len(translators))

	var g errgroup.Group
	g.SetLimit(d.config.Concurrency)

	// a translator who cannot be screened is skipped, not fatal to the others
	for i, u := range translators {
		i, u := i, u
		if u.ID == excludeUserID {
			continue
		}
		g.Go(func() error {
			r, err := d.screenTranslator(ctx, u, job, owner, night)
			if err != nil {
				d.logger.Error("Failed to screen translator",
					slog.Int64("job_id", job.ID),
					slog.Int64("translator_id", u.ID),
					slog.Any("error", err),
				)
				return nil
			}
			decisions[i] = r
			return nil
		})
	}
	_ = g.Wait()

	var immediate, delayed []domain.User
	var summary Summary
	for _, r := range decisions {
		if r == nil {
			continue
		}
		if r.delay {
			delayed = append(delayed, r.user)
			summary.Delayed = append(summary.Delayed, r.user.ID)
		} else {
			immediate = append(immediate, r.user)
			summary.Immediate = append(summary.Immediate, r.user.ID)
		}
	}

	payload := SuitableJobPayload(job, data, d.LanguageName(job.FromLanguageID))
	var contents map[string]string
	if job.Immediate {
		contents = d.printers.Contents(MsgSuitableImmediate, d.LanguageName(job.FromLanguageID), job.Duration)
	} else {
		contents = d.printers.Contents(MsgSuitableScheduled, d.LanguageName(job.FromLanguageID), job.Duration, formatDue(job.Due))
	}

	d.logger.Info("Push send for job",
		slog.Int64("job_id", job.ID),
		slog.Any("immediate", summary.Immediate),
		slog.Any("delayed", summary.Delayed),
	)

	d.push(ctx, job, immediate, payload, contents, nil)
	if len(delayed) > 0 {
		sendAfter := d.hours.NextBusinessTime(now)
		d.push(ctx, job, delayed, payload, contents, &sendAfter)
	}

	return summary, nil
}

// screenTranslator returns nil when the translator must not be alerted
func (d *Dispatcher) screenTranslator(ctx context.Context, u domain.User, job *domain.Job, owner matching.Owner, night bool) (*recipient, error) {
	if job.Status != domain.StatusPending {
		return nil, nil
	}

	profile, err := d.users.GetProfile(ctx, u.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for translator %d: %w", u.ID, err)
	}

	if profile.NotGetNotification {
		return nil, nil
	}
	if job.Immediate && profile.NotGetEmergency {
		return nil, nil
	}

	ok, err := d.engine.Eligible(ctx, job, domain.Candidate{User: u, Profile: *profile}, owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	return &recipient{user: u, delay: night && !profile.NotGetNighttime}, nil
}

// NotifyUser sends a session push to one known user, honouring their preferences
func (d *Dispatcher) NotifyUser(ctx context.Context, user *domain.User, job *domain.Job, notificationType string, contents map[string]string) {
	if user == nil {
		return
	}

	profile, err := d.users.GetProfile(ctx, user.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		d.logger.Error("Failed to load profile for push",
			slog.Int64("job_id", job.ID),
			slog.Int64("recipient", user.ID),
			slog.Any("error", err),
		)
		return
	}
	if profile == nil {
		profile = &domain.UserProfile{}
	}
	if profile.NotGetNotification {
		return
	}

	payload := map[string]any{"notification_type": notificationType}
	now := d.clock.Now()
	if d.hours.IsNightTime(now) && !profile.NotGetNighttime {
		sendAfter := d.hours.NextBusinessTime(now)
		d.push(ctx, job, []domain.User{*user}, payload, contents, &sendAfter)
		return
	}
	d.push(ctx, job, []domain.User{*user}, payload, contents, nil)
}

// NotifyJobAccepted tells the customer that a translator took the booking
func (d *Dispatcher) NotifyJobAccepted(ctx context.Context, customer *domain.User, job *domain.Job) {
	contents := d.printers.Contents(MsgJobAccepted, d.LanguageName(job.FromLanguageID), job.Duration, formatDue(job.Due))
	d.NotifyUser(ctx, customer, job, domain.NotificationJobAccepted, contents)
}

// NotifyJobCancelled tells the other party that a booking was dropped
func (d *Dispatcher) NotifyJobCancelled(ctx context.Context, to *domain.User, job *domain.Job, byCustomer bool) {
	key := MsgCancelledByTranslator
	if byCustomer {
		key = MsgCancelledByCustomer
	}
	contents := d.printers.Contents(key, d.LanguageName(job.FromLanguageID), job.Duration, formatDue(job.Due))
	d.NotifyUser(ctx, to, job, domain.NotificationJobCancelled, contents)
}

// NotifySessionStartRemind sends the pre-session reminder
func (d *Dispatcher) NotifySessionStartRemind(ctx context.Context, to *domain.User, job *domain.Job) {
	lang := d.LanguageName(job.FromLanguageID)
	due := job.Due.Format("2006-01-02 15:04")

	var contents map[string]string
	if job.CustomerPhysicalType {
		contents = d.printers.Contents(MsgRemindPhysical, lang, job.Town, due, job.Duration)
	} else {
		contents = d.printers.Contents(MsgRemindPhone, lang, due, job.Duration)
	}
	d.NotifyUser(ctx, to, job, domain.NotificationSessionStartRemind, contents)
}

// SendSMSToTranslators texts every translator matching the job and returns how many matched
func (d *Dispatcher) SendSMSToTranslators(ctx context.Context, job *domain.Job) (int, error) {
	translators, err := d.users.ActiveTranslators(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load active translators: %w", err)
	}

	pool := make([]domain.Candidate, 0, len(translators))
	for _, u := range translators {
		profile, err := d.users.GetProfile(ctx, u.ID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to load profile for translator %d: %w", u.ID, err)
		}
		pool = append(pool, domain.Candidate{User: u, Profile: *profile})
	}

	eligible, err := d.engine.FindEligible(ctx, job, pool)
	if err != nil {
		return 0, err
	}

	city := job.Town
	if city == "" {
		if owner, err := d.users.GetProfile(ctx, job.UserID); err == nil {
			city = owner.City
		}
	}

	date := job.Due.Format("02.01.2006")
	clock := job.Due.Format("15:04")
	duration := timeutil.ConvertToHoursMins(job.Duration)

	var text string
	if SMSTemplateKey(job) == MsgSMSPhysical {
		text = d.printers.Sprintf(MsgSMSPhysical, city, date, clock, duration, BookingRef(job.ID))
	} else {
		text = d.printers.Sprintf(MsgSMSPhone, date, clock, duration, BookingRef(job.ID))
	}

	d.logger.Info("Sending SMS to translators",
		slog.Int64("job_id", job.ID),
		slog.Int("count", len(eligible)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.Concurrency)
	for _, c := range eligible {
		c := c
		if c.User.Mobile == "" {
			d.logger.Warn("Translator has no mobile number",
				slog.Int64("job_id", job.ID),
				slog.Int64("translator_id", c.User.ID),
			)
			continue
		}
		g.Go(func() error {
			sms := domain.SMS{From: d.config.SMSSender, To: c.User.Mobile, Message: text}
			if err := d.transport.SendSMS(gctx, sms); err != nil {
				d.failed(job.ID, c.User.Email, domain.ChannelSMS, err)
				return nil
			}
			d.metrics.NotificationSent(string(domain.ChannelSMS), metrics.OutcomeSuccess)
			return nil
		})
	}
	_ = g.Wait()

	return len(eligible), nil
}

// SMSTemplateKey picks the SMS template: on-site only bookings get the physical text
func SMSTemplateKey(job *domain.Job) string {
	if job.RequiresTownMatch() {
		return MsgSMSPhysical
	}
	return MsgSMSPhone
}

// SendEmails hands every email to the transport concurrently and waits.
// Failures are logged with the job id and never returned.
func (d *Dispatcher) SendEmails(ctx context.Context, jobID int64, emails ...domain.Email) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.Concurrency)
	for _, e := range emails {
		e := e
		if strings.TrimSpace(e.To) == "" {
			continue
		}
		g.Go(func() error {
			if err := d.transport.SendEmail(gctx, e); err != nil {
				d.failed(jobID, e.To, "email", err)
				return nil
			}
			d.metrics.NotificationSent("email", metrics.OutcomeSuccess)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) push(ctx context.Context, job *domain.Job, users []domain.User, payload map[string]any, contents map[string]string, sendAfter *time.Time) {
	if len(users) == 0 {
		return
	}

	env := domain.Envelope{
		Recipients: Recipients(users),
		JobID:      job.ID,
		Payload:    withJobID(payload, job.ID),
		Contents:   contents,
		Title:      d.config.PushTitle,
		Sound:      SoundFor(payload),
		Channel:    domain.ChannelPush,
		SendAfter:  sendAfter,
	}
	if sendAfter != nil {
		env.Channel = domain.ChannelDelayedPush
	}

	if err := d.transport.SendPush(ctx, env); err != nil {
		for _, r := range env.Recipients {
			d.failed(job.ID, r.Email, env.Channel, err)
		}
		return
	}
	d.metrics.NotificationSent(string(env.Channel), metrics.OutcomeSuccess)
}

func (d *Dispatcher) failed(jobID int64, to string, channel domain.Channel, err error) {
	d.metrics.NotificationSent(string(channel), metrics.OutcomeError)
	d.logger.Error("Failed to send notification",
		slog.Int64("job_id", jobID),
		slog.String("recipient", to),
		slog.String("channel", string(channel)),
		slog.Any("error", err),
	)
}

func formatDue(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}
