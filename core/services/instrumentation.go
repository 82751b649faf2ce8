package services

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/koscakluka/meethost/core/services"

var logger = otelslog.NewLogger(scopeName)
