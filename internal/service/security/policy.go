package security

import (
	"errors"
	"fmt"

	"github.com/oshokin/home-alarm/internal/config"
)

// DisarmedActivationPolicy decides whether activating a sensor while the
// system is disarmed moves NoAlarm to PendingAlarm.
type DisarmedActivationPolicy int

const (
	// DisarmedActivationEscalate escalates regardless of the arming mode.
	DisarmedActivationEscalate DisarmedActivationPolicy = iota
	// DisarmedActivationIgnore keeps NoAlarm while disarmed.
	DisarmedActivationIgnore
)

// AwayCatPolicy decides what a detected cat means while armed away.
type AwayCatPolicy int

const (
	// AwayCatIgnore takes no action for a cat seen while armed away.
	AwayCatIgnore AwayCatPolicy = iota
	// AwayCatAlarm raises the alarm as if armed home.
	AwayCatAlarm
)

// RepeatedActivationPolicy decides what activating an already active sensor means.
type RepeatedActivationPolicy int

const (
	// RepeatedActivationEscalate moves PendingAlarm to Alarm.
	RepeatedActivationEscalate RepeatedActivationPolicy = iota
	// RepeatedActivationIgnore treats the call as a no-op like any call that changes nothing.
	RepeatedActivationIgnore
)

// errUnknownPolicy is returned when a configured policy name is not recognized.
var errUnknownPolicy = errors.New("unknown policy")

// Policies groups the decisions the alarm rules leave open.
type Policies struct {
	// DisarmedActivation applies to the NoAlarm -> PendingAlarm edge only.
	DisarmedActivation DisarmedActivationPolicy
	// AwayCat applies to processed frames and to arming with a remembered cat.
	AwayCat AwayCatPolicy
	// RepeatedActivation applies to activation calls for sensors already active.
	RepeatedActivation RepeatedActivationPolicy
}

// PoliciesFromConfig maps the YAML policy section onto engine policies.
func PoliciesFromConfig(cfg config.Policy) (Policies, error) {
	var policies Policies

	switch cfg.DisarmedActivation {
	case "", config.PolicyEscalate:
		policies.DisarmedActivation = DisarmedActivationEscalate
	case config.PolicyIgnore:
		policies.DisarmedActivation = DisarmedActivationIgnore
	default:
		return policies, fmt.Errorf("%w: disarmed_activation=%q", errUnknownPolicy, cfg.DisarmedActivation)
	}

	switch cfg.AwayCat {
	case "", config.PolicyIgnore:
		policies.AwayCat = AwayCatIgnore
	case config.PolicyAlarm:
		policies.AwayCat = AwayCatAlarm
	default:
		return policies, fmt.Errorf("%w: away_cat=%q", errUnknownPolicy, cfg.AwayCat)
	}

	switch cfg.RepeatedActivation {
	case "", config.PolicyEscalate:
		policies.RepeatedActivation = RepeatedActivationEscalate
	case config.PolicyIgnore:
		policies.RepeatedActivation = RepeatedActivationIgnore
	default:
		return policies, fmt.Errorf("%w: repeated_activation=%q", errUnknownPolicy, cfg.RepeatedActivation)
	}

	return policies, nil
}
