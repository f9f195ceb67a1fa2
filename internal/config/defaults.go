package config

const (
	defaultExpDir                   = "exp/nnet3"
	defaultNumEpochs                = 8.0
	defaultAddLayersPeriod          = 2
	defaultMaxParamChange           = 2.0
	defaultMinibatchSize            = "256"
	defaultStage                    = -4
	defaultExitStage                = -1
	defaultInitialEffectiveLRate    = 0.0003
	defaultFinalEffectiveLRate      = 0.00003
	defaultNumJobsInitial           = 1
	defaultNumJobsFinal             = 8
	defaultMaxModelsCombine         = 20
	defaultShrinkThreshold          = 0.40
	defaultShrinkValue              = 1.0
	defaultDifferenceThreshold      = 1.0
	defaultPriorPower               = -0.25
	defaultPriorSmooth              = 0.01
	defaultPriorJobs                = 4
	defaultPreserveModelInterval    = 100
	defaultLauncherKind             = "local"
	defaultLauncherScript           = "run.pl"
	defaultBackgroundPollingSeconds = 60
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultLogRetentionDays         = 30
	defaultContextUnset             = -1

	defaultInitCommand        = "nnet3-init --srand={srand} {init_model} {dir}/configs/layer1.config {output}"
	defaultTrainCommand       = "nnet3-train --print-interval=10 --max-param-change={max_param_change} --minibatch-size={minibatch_size} --learning-rate={learning_rate} {input_model} ark:{egs_dir}/egs.{archive}.ark {output_model}"
	defaultAverageCommand     = "nnet3-average {models} {output}"
	defaultSelectCommand      = "nnet3-copy --scale={scale} {best_model} {output}"
	defaultCombineCommand     = "nnet3-combine --max-objective-evaluations=30 {models} ark:{egs_dir}/combine.egs {output}"
	defaultSaturationCommand  = "{info_binary} --print-args=false {model} | steps/nnet3/get_saturation.pl"
	defaultComputeProbCommand = "nnet3-compute-prob {model} ark:{egs_dir}/valid_diagnostic.egs"
	defaultAccPriorsCommand   = "ali-to-post \"ark:gunzip -c {ali_dir}/ali.JOB.gz|\" ark:- | post-to-tacc --per-pdf=true {ali_dir}/final.mdl ark:- {dir}/pdf_counts.JOB"
	defaultSumPriorsCommand   = "vector-sum --binary=false {dir}/pdf_counts.* {dir}/pdf_counts"
	defaultRemoveEgsCommand   = "steps/nnet2/remove_egs.sh {egs_dir}"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ExpDir: defaultExpDir,
		},
		Egs: Egs{
			LeftContextInitial: defaultContextUnset,
			RightContextFinal:  defaultContextUnset,
		},
		Trainer: Trainer{
			NumEpochs:       defaultNumEpochs,
			AddLayersPeriod: defaultAddLayersPeriod,
			MaxParamChange:  defaultMaxParamChange,
			MinibatchSize:   defaultMinibatchSize,
			AcousticModel:   true,
			Stage:           defaultStage,
			ExitStage:       defaultExitStage,
		},
		Optimization: Optimization{
			InitialEffectiveLRate: defaultInitialEffectiveLRate,
			FinalEffectiveLRate:   defaultFinalEffectiveLRate,
			NumJobsInitial:        defaultNumJobsInitial,
			NumJobsFinal:          defaultNumJobsFinal,
			MaxModelsCombine:      defaultMaxModelsCombine,
		},
		Shrinkage: Shrinkage{
			SaturationThreshold: defaultShrinkThreshold,
			Value:               defaultShrinkValue,
		},
		Selection: Selection{
			DifferenceThreshold: defaultDifferenceThreshold,
		},
		Priors: Priors{
			Power:   defaultPriorPower,
			Smooth:  defaultPriorSmooth,
			NumJobs: defaultPriorJobs,
		},
		Cleanup: Cleanup{
			Enabled:               true,
			RemoveEgs:             true,
			PreserveModelInterval: defaultPreserveModelInterval,
		},
		Launcher: Launcher{
			Kind:                     defaultLauncherKind,
			Script:                   defaultLauncherScript,
			BackgroundPollingSeconds: defaultBackgroundPollingSeconds,
		},
		Commands: Commands{
			Init:        defaultInitCommand,
			Train:       defaultTrainCommand,
			Average:     defaultAverageCommand,
			Select:      defaultSelectCommand,
			Combine:     defaultCombineCommand,
			Saturation:  defaultSaturationCommand,
			ComputeProb: defaultComputeProbCommand,
			AccPriors:   defaultAccPriorsCommand,
			SumPriors:   defaultSumPriorsCommand,
			RemoveEgs:   defaultRemoveEgsCommand,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
