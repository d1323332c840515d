package monitor

import (
	"redirect-mgmt-go/pkg/probe"
	"redirect-mgmt-go/pkg/provider"
	"redirect-mgmt-go/pkg/utils"
)

// Outcome classifies one health check.
type Outcome int

const (
	Healthy Outcome = iota
	Preview
	Mismatch
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Healthy:
		return "healthy"
	case Preview:
		return "preview"
	case Mismatch:
		return "mismatch"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Classify decides what a check result means for a link expected to land on
// expectedDomain. Landing on the provider's own domain is a preview page,
// landing anywhere else unexpected is a mismatch. The returned error is nil
// only for Healthy.
func Classify(res probe.Result, expectedDomain, providerDomain string) (Outcome, error) {
	if res.Err != nil {
		return Failed, &provider.Error{
			Kind:    provider.KindRequest,
			Message: res.Diagnostic(),
			Status:  res.StatusCode,
			Cause:   res.Err,
		}
	}

	final := utils.ResolveDomain(res.FinalURL)
	provDomain := utils.ResolveDomain(utils.DomainAsURL(providerDomain))

	if provDomain != "" && final == provDomain && expectedDomain != provDomain {
		return Preview, provider.PreviewInterception(res.URL, expectedDomain)
	}
	if final != expectedDomain {
		return Mismatch, provider.UnwantedDomain(expectedDomain, final)
	}
	return Healthy, nil
}
