package dispatcher

import "errors"

// ErrLoopLimitReached names the case where the tool loop exits because it
// hit MaxToolLoopIterations rather than because the model stopped
// requesting tools (spec §4.7 step 6). HandleQuery does not return it: in
// that case it appends a warning to the response text instead.
var ErrLoopLimitReached = errors.New("dispatcher: tool loop limit reached")
