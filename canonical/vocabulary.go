package canonical

// Canonical movement names. Transformers must map source names onto these.
const (
	PullUp     = "Pull-up"
	Dips       = "Dips"
	MuscleUp   = "Muscle-up"
	Squat      = "Squat"
	BenchPress = "Bench Press"
	Deadlift   = "Deadlift"
)

// Vocabulary is the closed list of movement names, in default display order.
var Vocabulary = []string{MuscleUp, PullUp, Dips, Squat, BenchPress, Deadlift}

var vocabularySet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Vocabulary))
	for _, v := range Vocabulary {
		m[v] = struct{}{}
	}
	return m
}()

// IsCanonicalMovement reports whether name belongs to the vocabulary.
// The match is exact: normalisation is the transformer's job.
func IsCanonicalMovement(name string) bool {
	_, ok := vocabularySet[name]
	return ok
}
