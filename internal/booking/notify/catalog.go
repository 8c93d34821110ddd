package notify

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys
const (
	MsgSuitableImmediate      = "push.suitable_job.immediate"
	MsgSuitableScheduled      = "push.suitable_job.scheduled"
	MsgJobAccepted            = "push.job_accepted"
	MsgCancelledByCustomer    = "push.job_cancelled.customer"
	MsgCancelledByTranslator  = "push.job_cancelled.translator"
	MsgRemindPhone            = "push.session_start_remind.phone"
	MsgRemindPhysical         = "push.session_start_remind.physical"
	MsgSMSPhysical            = "sms.physical_job"
	MsgSMSPhone               = "sms.phone_job"
	SubjectJobCreated         = "subject.job_created"
	SubjectJobAccepted        = "subject.job_accepted"
	SubjectSessionEnded       = "subject.session_ended"
	SubjectJobChanged         = "subject.job_changed"
	SubjectTranslatorChanged  = "subject.translator_changed"
	SubjectJobCancelled       = "subject.job_cancelled"
	SubjectJobReopened        = "subject.job_reopened"
	MsgAcceptedByYou          = "reply.accepted"
	MsgAlreadyTakenBy         = "reply.already_taken"
	MsgAlreadyBookedAt        = "reply.already_booked"
	MsgTranslatorCancelWindow = "reply.cancel_window"
)

// Locales are the languages push contents are rendered in; the first is the default
var Locales = []language.Tag{language.Swedish, language.English}

var entries = map[string]map[language.Tag]string{
	MsgSuitableImmediate: {
		language.Swedish: "Ny akutbokning för %s tolk %d min",
		language.English: "New emergency booking for %s interpreter %d min",
	},
	MsgSuitableScheduled: {
		language.Swedish: "Ny bokning för %s tolk %d min %s",
		language.English: "New booking for %s interpreter %d min %s",
	},
	MsgJobAccepted: {
		language.Swedish: "Din bokning för %s tolk, %dmin, %s har accepterats av en tolk. Vänligen öppna appen för att se detaljer om tolken.",
		language.English: "Your booking for %s interpreter, %dmin, %s has been accepted. Please open the app to see the interpreter's details.",
	},
	MsgCancelledByCustomer: {
		language.Swedish: "Kunden har avbokat bokningen för %stolk, %dmin, %s. Var god och kolla dina tidigare bokningar för detaljer.",
		language.English: "The customer has cancelled the booking for %s interpreter, %dmin, %s. Please check your previous bookings for details.",
	},
	MsgCancelledByTranslator: {
		language.Swedish: "Er %stolk, %dmin %s, har avbokat tolkningen. Vi letar nu efter en ny tolk som kan ersätta denne. Tack.",
		language.English: "Your %s interpreter, %dmin %s, has cancelled. We are now looking for a replacement. Thank you.",
	},
	MsgRemindPhone: {
		language.Swedish: "Detta är en påminnelse om att du har en %stolkning (telefon) kl %s i %d min. Lycka till!",
		language.English: "Reminder: you have a %s phone interpretation at %s for %d min. Good luck!",
	},
	MsgRemindPhysical: {
		language.Swedish: "Detta är en påminnelse om att du har en %stolkning (på plats i %s) kl %s i %d min. Lycka till!",
		language.English: "Reminder: you have a %s on-site interpretation in %s at %s for %d min. Good luck!",
	},
	MsgSMSPhysical: {
		language.Swedish: "Hej! Det finns en ny tolkning på plats i %s den %s kl %s (%s). Bokningsnr #%s. Logga in för att acceptera.",
		language.English: "Hi! There is a new on-site interpretation in %s on %s at %s (%s). Booking #%s. Log in to accept.",
	},
	MsgSMSPhone: {
		language.Swedish: "Hej! Det finns en ny telefontolkning den %s kl %s (%s). Bokningsnr #%s. Logga in för att acceptera.",
		language.English: "Hi! There is a new phone interpretation on %s at %s (%s). Booking #%s. Log in to accept.",
	},
	SubjectJobCreated: {
		language.Swedish: "Vi har mottagit er tolkbokning. Bokningsnr: #%s",
		language.English: "We have received your booking. Booking #%s",
	},
	SubjectJobAccepted: {
		language.Swedish: "Bekräftelse - tolk har accepterat er bokning (bokning # %s)",
		language.English: "Confirmation - an interpreter has accepted your booking (booking # %s)",
	},
	SubjectSessionEnded: {
		language.Swedish: "Information om avslutad tolkning för bokningsnummer # %s",
		language.English: "Information about the completed interpretation for booking # %s",
	},
	SubjectJobChanged: {
		language.Swedish: "Meddelande om ändring av tolkbokning för uppdrag # %s",
		language.English: "Notice of change to booking # %s",
	},
	SubjectTranslatorChanged: {
		language.Swedish: "Meddelande om tilldelning av tolkuppdrag för uppdrag # %s",
		language.English: "Notice of interpreter assignment for booking # %s",
	},
	SubjectJobCancelled: {
		language.Swedish: "Avbokning av bokningsnr: #%s",
		language.English: "Cancellation of booking #%s",
	},
	SubjectJobReopened: {
		language.Swedish: "Vi har nu återöppnat er bokning av %stolk för bokning #%s",
		language.English: "We have reopened your %s interpreter booking #%s",
	},
	MsgAcceptedByYou: {
		language.Swedish: "Du har nu accepterat och fått bokningen för %stolk %dmin %s",
		language.English: "You have accepted the booking for %s interpreter %dmin %s",
	},
	MsgAlreadyTakenBy: {
		language.Swedish: "Denna %stolkning %dmin %s har redan accepterats av annan tolk. Du har inte fått denna tolkning",
		language.English: "This %s interpretation %dmin %s has already been accepted by another interpreter",
	},
	MsgAlreadyBookedAt: {
		language.Swedish: "Du har redan en bokning den tiden %s. Du har inte fått denna tolkning",
		language.English: "You already have a booking at %s. The booking was not accepted",
	},
	MsgTranslatorCancelWindow: {
		language.Swedish: "Du kan inte avboka en bokning som sker inom 24 timmar genom DigitalTolk. Vänligen ring på +46 73 75 86 865 och gör din avbokning over telefon. Tack!",
		language.English: "You cannot cancel a booking within 24 hours of its start. Please call +46 73 75 86 865 to cancel by phone. Thank you!",
	},
}

// BookingRef renders a booking number without locale digit grouping
func BookingRef(id int64) string {
	return strconv.FormatInt(id, 10)
}

// NewCatalog builds the message catalog with Swedish as the fallback
func NewCatalog() (*catalog.Builder, error) {
	b := catalog.NewBuilder(catalog.Fallback(Locales[0]))
	for key, texts := range entries {
		for tag, text := range texts {
			if err := b.SetString(tag, key, text); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

// Printers renders catalog messages in every configured locale
type Printers struct {
	byTag map[language.Tag]*message.Printer
}

// NewPrinters creates one printer per locale backed by cat
func NewPrinters(cat catalog.Catalog) *Printers {
	p := &Printers{byTag: make(map[language.Tag]*message.Printer, len(Locales))}
	for _, tag := range Locales {
		p.byTag[tag] = message.NewPrinter(tag, message.Catalog(cat))
	}
	return p
}

// Sprintf renders key in the default locale
func (p *Printers) Sprintf(key string, args ...any) string {
	return p.byTag[Locales[0]].Sprintf(key, args...)
}

// Contents renders key in every locale, keyed by base language code
func (p *Printers) Contents(key string, args ...any) map[string]string {
	out := make(map[string]string, len(p.byTag))
	for _, tag := range Locales {
		base, _ := tag.Base()
		out[base.String()] = p.byTag[tag].Sprintf(key, args...)
	}
	return out
}
