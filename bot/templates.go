package bot

// Template names registered on the device side. They must match the image
// file names shipped with the device app.
const (
	TemplateTrainingEventActive = "training_event_active"
	TemplateRaceDoubleCircle    = "race_prediction_double_circle"
	TemplateCancel              = "cancel"
	TemplateOK                  = "ok"
	TemplateClose               = "close"
	TemplateNext                = "next"
	TemplateSkip                = "skip"
	TemplateBack                = "back"

	// Generic race flow.
	TemplateRaceSelectExtra     = "race_select_extra"
	TemplateRaceSelectMandatory = "race_select_mandatory"
	TemplateRaceConfirm         = "race_confirm"
	TemplateRaceManual          = "race_manual"
	TemplateRaceSkipManual      = "race_skip_manual"
	TemplateRaceEnd             = "race_end"
	TemplateRaceAcceptTrophy    = "race_accept_trophy"
	TemplateRaceExtraPrediction = "race_extra_double_prediction"

	// Ao Haru.
	TemplateAoHaruTutorialHeader = "aoharu_tutorial_header"
	TemplateAoHaruInitialTeam    = "aoharu_set_initial_team_header"
	TemplateAoHaruRaceHeader     = "aoharu_race_header"
	TemplateAoHaruRace           = "aoharu_race"
	TemplateAoHaruFinalRace      = "aoharu_final_race"
	TemplateAoHaruRaceOption     = "aoharu_race_option"
	TemplateAoHaruSelectRace     = "aoharu_select_race"
	TemplateAoHaruRunRace        = "aoharu_run_race"

	// Unity Cup.
	TemplateUnityCupTutorialHeader  = "unitycup_tutorial_header"
	TemplateUnityCupRace            = "unitycup_race"
	TemplateUnityCupFinalRace       = "unitycup_final_race"
	TemplateUnityCupRaceManual      = "unitycup_race_manual"
	TemplateUnityCupSelectOpponent  = "unitycup_select_opponent"
	TemplateUnityCupOpponentLaurel  = "unitycup_opponent_selection_laurel"
	TemplateUnityCupConfirmation    = "dialog_unity_cup_confirmation"
	TemplateUnityCupAutoFill        = "dialog_auto_fill"
	TemplateUnityCupViewResultsLock = "unitycup_view_results_locked"
	TemplateUnityCupSeeAllResults   = "unitycup_see_all_race_results"
	TemplateUnityCupRaceEndLogo     = "unitycup_race_end_logo"
	TemplateNextRaceEnd             = "next_race_end"
)
