package looper

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/koscakluka/meethost/core/looper"

var logger = otelslog.NewLogger(scopeName)
