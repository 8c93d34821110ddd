package matching

import "github.com/cuongbtq/booking-core/internal/booking/domain"

var allLevels = []string{
	domain.LevelCertified,
	domain.LevelCertifiedLaw,
	domain.LevelCertifiedHealth,
	domain.LevelLayman,
	domain.LevelReadCourses,
}

// TranslatorLevels returns the certification levels acceptable for a requirement.
// Branches are evaluated in order, so "both" resolves to the certified levels.
func TranslatorLevels(c domain.Certification) []string {
	switch c {
	case domain.CertificationCertified, domain.CertificationBoth:
		return []string{domain.LevelCertified, domain.LevelCertifiedLaw, domain.LevelCertifiedHealth}
	case domain.CertificationLaw, domain.CertificationNLaw:
		return []string{domain.LevelCertifiedLaw}
	case domain.CertificationHealth, domain.CertificationNHealth:
		return []string{domain.LevelCertifiedHealth}
	case domain.CertificationNormal:
		return []string{domain.LevelLayman, domain.LevelReadCourses}
	case domain.CertificationNone:
		return allLevels
	}
	return nil
}

// JobTypeFor maps a translator's contract type to the job type they may take.
// Unknown types fall back to unpaid.
func JobTypeFor(t domain.TranslatorType) domain.JobType {
	switch t {
	case domain.TranslatorProfessional:
		return domain.JobTypePaid
	case domain.TranslatorRWS:
		return domain.JobTypeRWS
	default:
		return domain.JobTypeUnpaid
	}
}

func levelAllowed(level string, c domain.Certification) bool {
	for _, l := range TranslatorLevels(c) {
		if l == level {
			return true
		}
	}
	return false
}
