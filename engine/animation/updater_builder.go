package animation

// UpdaterBuilderOption is a functional option for configuring an Updater via NewUpdater.
type UpdaterBuilderOption func(*updater)

// WithName is an option builder that overrides the updater name. An empty name keeps the
// clip name.
//
// Parameters:
//   - name: the updater name
//
// Returns:
//   - UpdaterBuilderOption: a function that applies the name option to an updater
func WithName(name string) UpdaterBuilderOption {
	return func(u *updater) {
		u.name = name
	}
}

// WithRepeatMode is an option builder that sets the initial repeat mode (default Loop).
//
// Parameters:
//   - mode: the repeat mode
//
// Returns:
//   - UpdaterBuilderOption: a function that applies the repeat mode option to an updater
func WithRepeatMode(mode RepeatMode) UpdaterBuilderOption {
	return func(u *updater) {
		u.repeatMode = mode
	}
}

// WithBoneMatrixPool is an option builder that sets the pool bone-matrix buffers are
// acquired from and released to. A nil pool keeps the allocating default.
//
// Parameters:
//   - pool: the buffer pool
//
// Returns:
//   - UpdaterBuilderOption: a function that applies the pool option to an updater
func WithBoneMatrixPool(pool BoneMatrixPool) UpdaterBuilderOption {
	return func(u *updater) {
		if pool != nil {
			u.pool = pool
		}
	}
}

// WithDebugAssertions is an option builder that enables keyframe ordering checks during
// sampling. A violated check panics.
//
// Parameters:
//   - enabled: true to check
//
// Returns:
//   - UpdaterBuilderOption: a function that applies the assertion option to an updater
func WithDebugAssertions(enabled bool) UpdaterBuilderOption {
	return func(u *updater) {
		u.debug = enabled
	}
}

// WithComposeRenormalization is an option builder that controls whether
// UpdateOneStepCompose re-derives an orthonormal rotation after each step (default true).
// Steps whose result has non-uniform scale are kept as composed either way.
// Disabling it reproduces raw matrix accumulation, drift included.
//
// Parameters:
//   - enabled: false to accumulate raw matrix products
//
// Returns:
//   - UpdaterBuilderOption: a function that applies the renormalization option to an updater
func WithComposeRenormalization(enabled bool) UpdaterBuilderOption {
	return func(u *updater) {
		u.composeRenormalize = enabled
	}
}
