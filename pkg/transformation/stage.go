package transformation

import "fmt"

// Stage is one step of a transformation run. Stages always run in the order
// declared here.
type Stage uint8

const (
	LoadSchema Stage = iota
	SplitFeaturesTarget
	EncodeTrain
	EncodeTest
	FitScaler
	ScaleTrain
	ScaleTest
	BalanceTrain
	BalanceTest
	Concatenate
	Persist
	Done
)

// NumStages counts every stage including Done.
const NumStages = int(Done) + 1

var stageNames = [...]string{
	LoadSchema:          "load_schema",
	SplitFeaturesTarget: "split_features_target",
	EncodeTrain:         "encode_train",
	EncodeTest:          "encode_test",
	FitScaler:           "fit_scaler",
	ScaleTrain:          "scale_train",
	ScaleTest:           "scale_test",
	BalanceTrain:        "balance_train",
	BalanceTest:         "balance_test",
	Concatenate:         "concatenate",
	Persist:             "persist",
	Done:                "done",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", s)
}

// StageError reports which stage of a run failed. Unwrap returns the
// underlying error unchanged, so errors.Is still matches the errs sentinels.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage.String() + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}
