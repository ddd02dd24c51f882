package errors

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// IsServerError reports whether code maps onto a 5xx status.
func IsServerError(code string) bool {
	status, _ := GetCodeMapping(code)
	return status >= 500
}

// LogError logs err with its code. Server-side failures go out at error
// level, client mistakes at warn.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if err == nil {
		return
	}

	code := CodeOf(err)
	level := zapcore.WarnLevel
	if IsServerError(code) {
		level = zapcore.ErrorLevel
	}

	allFields := make([]zap.Field, 0, len(fields)+2)
	allFields = append(allFields, fields...)
	allFields = append(allFields, zap.String("error_code", code), zap.Error(err))

	if ce := logger.Check(level, msg); ce != nil {
		ce.Write(allFields...)
	}
}
