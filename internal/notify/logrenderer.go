package notify

import "go.uber.org/zap"

// Log renders alerts as log lines. It suits headless hosts, where the
// inbox can still be opened through the status API.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Create(title, body, icon string) (Alert, error) {
	return &logAlert{content: &content{title: title, body: body, icon: icon}, logger: l.Logger}, nil
}

type logAlert struct {
	*content
	logger  *zap.Logger
	visible bool
}

func (a *logAlert) Show() error {
	if a.released {
		return ErrAlertReleased
	}
	a.visible = true
	a.logger.Info("alert_shown",
		zap.String("category", a.category),
		zap.String("icon", a.icon),
		zap.String("body", a.body),
	)
	return nil
}

func (a *logAlert) Close() error {
	if a.released {
		return ErrAlertReleased
	}
	if a.visible {
		a.visible = false
		a.logger.Info("alert_closed", zap.String("body", a.body))
	}
	return nil
}

func (a *logAlert) Release() { a.release() }
