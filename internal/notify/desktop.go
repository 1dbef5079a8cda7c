package notify

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	notificationsName   = "org.freedesktop.Notifications"
	notificationsPath   = dbus.ObjectPath("/org/freedesktop/Notifications")
	signalActionInvoked = notificationsName + ".ActionInvoked"
	signalClosed        = notificationsName + ".NotificationClosed"
)

// notificationServer is the part of org.freedesktop.Notifications we use.
type notificationServer interface {
	Notify(appName string, replacesID uint32, icon, summary, body string,
		actions []string, hints map[string]dbus.Variant, timeout int32) (uint32, error)
	CloseNotification(id uint32) error
}

// Desktop shows alerts through the freedesktop notification server on the
// session bus. Signals from the server are handed to post so that actions
// run on the event loop.
type Desktop struct {
	appName string
	server  notificationServer
	post    func(func()) bool
	logger  *zap.Logger
	conn    *dbus.Conn

	// visible maps server ids to alerts; only touched on the event loop.
	visible map[uint32]*desktopAlert
}

// NewDesktop connects to the session bus.
func NewDesktop(appName string, post func(func()) bool, logger *zap.Logger) (*Desktop, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}
	err = conn.AddMatchSignal(
		dbus.WithMatchObjectPath(notificationsPath),
		dbus.WithMatchInterface(notificationsName),
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("subscribing to notification signals: %w", err)
	}

	d := newDesktop(appName, &busServer{obj: conn.Object(notificationsName, notificationsPath)}, post, logger)
	d.conn = conn

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)
	go func() {
		for sig := range signals {
			d.receive(sig)
		}
	}()
	return d, nil
}

func newDesktop(appName string, server notificationServer, post func(func()) bool, logger *zap.Logger) *Desktop {
	return &Desktop{
		appName: appName,
		server:  server,
		post:    post,
		logger:  logger,
		visible: make(map[uint32]*desktopAlert),
	}
}

// Close disconnects from the session bus.
func (d *Desktop) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

func (d *Desktop) Create(title, body, icon string) (Alert, error) {
	return &desktopAlert{
		content: &content{title: title, body: body, icon: icon},
		d:       d,
	}, nil
}

// receive runs on the D-Bus goroutine.
func (d *Desktop) receive(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	id, ok := sig.Body[0].(uint32)
	if !ok {
		return
	}
	switch sig.Name {
	case signalActionInvoked:
		key, _ := sig.Body[1].(string)
		d.post(func() { d.actionInvoked(id, key) })
	case signalClosed:
		d.post(func() { d.closed(id) })
	}
}

func (d *Desktop) actionInvoked(id uint32, key string) {
	a := d.visible[id]
	if a == nil {
		d.logger.Debug("desktop_action_unknown_alert", zap.Uint32("id", id), zap.String("action", key))
		return
	}
	if !a.invoke(key) {
		d.logger.Debug("desktop_action_unknown", zap.Uint32("id", id), zap.String("action", key))
	}
}

func (d *Desktop) closed(id uint32) {
	if a := d.visible[id]; a != nil {
		a.id = 0
		delete(d.visible, id)
	}
}

type desktopAlert struct {
	*content
	d  *Desktop
	id uint32 // server id; 0 when not visible
}

func (a *desktopAlert) Show() error {
	if a.released {
		return ErrAlertReleased
	}
	actions := make([]string, 0, 2*len(a.actions))
	for _, act := range a.actions {
		actions = append(actions, act.ID, act.Label)
	}
	hints := map[string]dbus.Variant{}
	if a.category != "" {
		hints["category"] = dbus.MakeVariant(a.category)
	}

	// Without a title the text is the summary; servers may hide a lone body.
	summary, body := a.title, a.body
	if summary == "" {
		summary, body = body, ""
	}

	id, err := a.d.server.Notify(a.d.appName, a.id, a.icon, summary, body, actions, hints, -1)
	if err != nil {
		return fmt.Errorf("showing notification: %w", err)
	}
	if a.id != 0 && a.id != id {
		delete(a.d.visible, a.id)
	}
	a.id = id
	a.d.visible[id] = a
	return nil
}

func (a *desktopAlert) Close() error {
	if a.released {
		return ErrAlertReleased
	}
	if a.id == 0 {
		return nil
	}
	id := a.id
	a.id = 0
	delete(a.d.visible, id)
	if err := a.d.server.CloseNotification(id); err != nil {
		return fmt.Errorf("closing notification %d: %w", id, err)
	}
	return nil
}

func (a *desktopAlert) Release() {
	if a.id != 0 {
		delete(a.d.visible, a.id)
		a.id = 0
	}
	a.release()
}

// busServer calls the notification server over D-Bus.
type busServer struct {
	obj dbus.BusObject
}

func (b *busServer) Notify(appName string, replacesID uint32, icon, summary, body string,
	actions []string, hints map[string]dbus.Variant, timeout int32) (uint32, error) {
	var id uint32
	err := b.obj.Call(notificationsName+".Notify", 0,
		appName, replacesID, icon, summary, body, actions, hints, timeout).Store(&id)
	return id, err
}

func (b *busServer) CloseNotification(id uint32) error {
	return b.obj.Call(notificationsName+".CloseNotification", 0, id).Err
}
