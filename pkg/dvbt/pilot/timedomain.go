package pilot

import (
	"github.com/norasector/dvbtsync/pkg/dvbt"
	"github.com/norasector/dvbtsync/pkg/dvbt/ofdm"
)

// UniqueWordTimeDomain builds the unique word for params and modulates every
// symbol of it. With includePrefix each symbol is params.SymbolLength() samples
// long, otherwise params.FFTLength. The frequency domain word is returned
// alongside.
func UniqueWordTimeDomain(params dvbt.ModeParameters, selector Selector, includePrefix bool) (timeDomain, freqDomain []complex128, err error) {
	return UniqueWordTimeDomainWith(ofdm.NewFramer(), params, selector, includePrefix)
}

// UniqueWordTimeDomainWith is UniqueWordTimeDomain reusing f's FFT plans.
func UniqueWordTimeDomainWith(f *ofdm.Framer, params dvbt.ModeParameters, selector Selector, includePrefix bool) (timeDomain, freqDomain []complex128, err error) {
	freqDomain, err = UniqueWord(params.ActiveCarriers, selector)
	if err != nil {
		return nil, nil, err
	}

	cp := 0
	if includePrefix {
		cp = params.CyclicPrefixLength
	}
	timeDomain, err = f.Synthesize(params.FFTLength, params.ActiveCarriers, cp, freqDomain)
	if err != nil {
		return nil, nil, err
	}
	return timeDomain, freqDomain, nil
}
