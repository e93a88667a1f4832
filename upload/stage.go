package upload

// Stage is a point in the upload state machine. Stages advance strictly in
// declaration order; any failure ends the run in Failed.
type Stage int

const (
	StageInit Stage = iota
	StageKeysDerived
	StageFileRead
	StageHashComputed
	StageManifestBuilt
	StageManifestValidated
	StageEpochFetched
	StageTransactionAssembled
	StageSubmitted
	StageSuccess
	StageFailed
)

var stageNames = [...]string{
	"Init",
	"KeysDerived",
	"FileRead",
	"HashComputed",
	"ManifestBuilt",
	"ManifestValidated",
	"EpochFetched",
	"TransactionAssembled",
	"Submitted",
	"Success",
	"Failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "Stage(?)"
	}
	return stageNames[s]
}

// step names the work that leads into s, for error messages.
func (s Stage) step() string {
	switch s {
	case StageInit:
		return "configure"
	case StageKeysDerived:
		return "derive account"
	case StageFileRead:
		return "read file"
	case StageHashComputed:
		return "hash file"
	case StageManifestBuilt:
		return "build manifest"
	case StageManifestValidated:
		return "validate manifest"
	case StageEpochFetched:
		return "fetch epoch"
	case StageTransactionAssembled:
		return "assemble transaction"
	case StageSubmitted:
		return "submit transaction"
	default:
		return s.String()
	}
}
