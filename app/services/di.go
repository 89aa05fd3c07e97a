package services

import (
	"time"

	"github.com/samber/do/v2"

	"speeddating/app/repository"
	"speeddating/app/utils"
)

// Settings carries the configuration the services need
type Settings struct {
	SchedulerInterval time.Duration
	// MatchmakingSeed seeds pairing shuffles; zero draws a random seed
	MatchmakingSeed int64
}

// RegisterDI provides the session services. The injector must already hold Settings,
// the repositories, a SessionLocker, a SessionNotifier and a StatsRecorder.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*MatchmakingService, error) {
		settings := do.MustInvoke[Settings](i)
		seed := settings.MatchmakingSeed
		if seed == 0 {
			var err error
			if seed, err = utils.NewSeed(); err != nil {
				return nil, err
			}
		}
		return NewMatchmakingService(
			do.MustInvoke[repository.SessionRepository](i),
			do.MustInvoke[SessionNotifier](i),
			do.MustInvoke[StatsRecorder](i),
			utils.NewRand(seed),
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*SessionService, error) {
		return NewSessionService(
			do.MustInvoke[repository.SessionRepository](i),
			do.MustInvoke[repository.UserRepository](i),
			do.MustInvoke[*MatchmakingService](i),
			do.MustInvoke[SessionLocker](i),
			do.MustInvoke[SessionNotifier](i),
			do.MustInvoke[StatsRecorder](i),
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*RegistrationService, error) {
		return NewRegistrationService(
			do.MustInvoke[repository.SessionRepository](i),
			do.MustInvoke[repository.UserRepository](i),
			do.MustInvoke[SessionNotifier](i),
			do.MustInvoke[StatsRecorder](i),
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*FeedbackService, error) {
		return NewFeedbackService(
			do.MustInvoke[repository.SessionRepository](i),
			do.MustInvoke[repository.FeedbackRepository](i),
			do.MustInvoke[StatsRecorder](i),
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*CronService, error) {
		settings := do.MustInvoke[Settings](i)
		return NewCronService(do.MustInvoke[*SessionService](i), settings.SchedulerInterval), nil
	})
}
