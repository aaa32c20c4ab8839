package sources

import (
	"strings"

	"github.com/rs/zerolog/log"

	"doctor_reputation/internal/domain"
	"doctor_reputation/internal/pipeline"
)

type Config struct {
	RateMDs  RateMDsConfig
	RealSelf RealSelfConfig
	IWGC     IWGCConfig
	Disabled []string // source ids registered inactive
}

// NewRegistry builds the three known sources over one shared fetcher.
func NewRegistry(f domain.Fetcher, cfg Config) (*pipeline.Registry, error) {
	rms, err := NewRateMDs(f, cfg.RateMDs)
	if err != nil {
		return nil, err
	}
	rs, err := NewRealSelf(f, cfg.RealSelf)
	if err != nil {
		return nil, err
	}
	iwgc, err := NewIWGC(f, cfg.IWGC)
	if err != nil {
		return nil, err
	}

	disabled := map[string]bool{}
	for _, id := range cfg.Disabled {
		if id = strings.TrimSpace(id); id != "" {
			disabled[id] = true
		}
	}

	reg := pipeline.NewRegistry()
	for _, s := range []*pipeline.Source{
		{ID: RateMDsID, Name: "RateMDs", Priority: 1, Profiles: rms, Speciality: rms, Reviews: rms,
			Policy: domain.ReportPolicy{NegativeMax: 1}},
		{ID: RealSelfID, Name: "RealSelf", Priority: 2, Profiles: rs, Speciality: rs, Reviews: rs,
			Policy: domain.DefaultReportPolicy},
		{ID: IWGCID, Name: "IWantGreatCare", Priority: 3, Profiles: iwgc, Speciality: iwgc, Reviews: iwgc,
			Policy: domain.DefaultReportPolicy},
	} {
		reg.Register(s, !disabled[s.ID])
		if disabled[s.ID] {
			log.Info().Str("source", s.ID).Msg("source disabled by configuration")
		}
	}
	return reg, nil
}
