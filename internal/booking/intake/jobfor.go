package intake

import "github.com/cuongbtq/booking-core/internal/booking/domain"

// jobForRule maps one requested "job for" tag to a gender or a certification
type jobForRule struct {
	tag           string
	gender        domain.Gender
	certification domain.Certification
}

// jobForTable is walked in order; the first rule matching each attribute wins
var jobForTable = []jobForRule{
	{tag: "male", gender: domain.GenderMale},
	{tag: "female", gender: domain.GenderFemale},
	{tag: "normal", certification: domain.CertificationNormal},
	{tag: "certified", certification: domain.CertificationCertified},
	{tag: "certified_in_law", certification: domain.CertificationLaw},
	{tag: "certified_in_helth", certification: domain.CertificationHealth},
	{tag: "certified_in_health", certification: domain.CertificationHealth},
	{tag: "both", certification: domain.CertificationBoth},
	{tag: "n_law", certification: domain.CertificationNLaw},
	{tag: "n_health", certification: domain.CertificationNHealth},
}

// JobForTags lists every tag the table understands, in priority order
func JobForTags() []string {
	tags := make([]string, 0, len(jobForTable))
	for _, r := range jobForTable {
		tags = append(tags, r.tag)
	}
	return tags
}

// ResolveJobFor derives the gender and certification requirement from requested tags
func ResolveJobFor(requested []string) (domain.Gender, domain.Certification) {
	want := make(map[string]struct{}, len(requested))
	for _, t := range requested {
		want[t] = struct{}{}
	}

	gender, cert := domain.GenderNone, domain.CertificationNone
	genderSet, certSet := false, false
	for _, r := range jobForTable {
		if _, ok := want[r.tag]; !ok {
			continue
		}
		if r.gender != domain.GenderNone && !genderSet {
			gender, genderSet = r.gender, true
		}
		if r.certification != domain.CertificationNone && !certSet {
			cert, certSet = r.certification, true
		}
		if genderSet && certSet {
			break
		}
	}
	return gender, cert
}

// RequestTags reverses ResolveJobFor: it returns the first tag of the table that
// produces the job's gender and certification.
func RequestTags(job *domain.Job) []string {
	var tags []string
	if job.Gender != domain.GenderNone {
		for _, r := range jobForTable {
			if r.gender == job.Gender {
				tags = append(tags, r.tag)
				break
			}
		}
	}
	if job.Certified != domain.CertificationNone {
		for _, r := range jobForTable {
			if r.certification == job.Certified {
				tags = append(tags, r.tag)
				break
			}
		}
	}
	return tags
}

// DisplayTags renders the requirement the way customers and translators read it.
// "both" expands into two labels.
func DisplayTags(job *domain.Job) []string {
	var tags []string
	switch job.Gender {
	case domain.GenderMale:
		tags = append(tags, "Man")
	case domain.GenderFemale:
		tags = append(tags, "Kvinna")
	}

	switch job.Certified {
	case domain.CertificationNone:
	case domain.CertificationBoth:
		tags = append(tags, "Godkänd tolk", "Auktoriserad")
	case domain.CertificationCertified:
		tags = append(tags, "Auktoriserad")
	case domain.CertificationNHealth:
		tags = append(tags, "Sjukvårdstolk")
	case domain.CertificationLaw, domain.CertificationNLaw:
		tags = append(tags, "Rättstolk")
	default:
		tags = append(tags, string(job.Certified))
	}
	return tags
}
