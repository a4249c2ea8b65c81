package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tiko09/ledctrl/internal/animation"
	"github.com/tiko09/ledctrl/internal/arbiter"
	"github.com/tiko09/ledctrl/internal/artnet"
	"github.com/tiko09/ledctrl/internal/clocksync"
	"github.com/tiko09/ledctrl/internal/color"
	"github.com/tiko09/ledctrl/internal/config"
	"github.com/tiko09/ledctrl/internal/hal"
	"github.com/tiko09/ledctrl/internal/health"
	"github.com/tiko09/ledctrl/internal/ingress"
	"github.com/tiko09/ledctrl/internal/logger"
	"github.com/tiko09/ledctrl/internal/metrics"
	"github.com/tiko09/ledctrl/internal/opstore"
	"github.com/tiko09/ledctrl/internal/pattern"
	"github.com/tiko09/ledctrl/internal/pattern/expr"
	"github.com/tiko09/ledctrl/internal/patternlib"
	"github.com/tiko09/ledctrl/internal/security"
	"github.com/tiko09/ledctrl/internal/settings"
	"github.com/tiko09/ledctrl/internal/strip"
	"github.com/tiko09/ledctrl/internal/telemetry/mqttstatus"
	"github.com/tiko09/ledctrl/internal/visualizer"
)

var Version = "0.1.0"

func main() {
	cfg, err := config.Load(os.Getenv("LEDCTRL_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{Level: cfg.Logger.Level, Format: cfg.Logger.Format}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	log.Info("ledctrl starting", zap.String("version", Version))

	hardware := initHAL(log)

	transport, channelOrder, err := buildTransport(cfg.Strip, hardware)
	if err != nil {
		log.Fatal("failed to build strip transport", zap.Error(err))
	}

	led := strip.New(cfg.Strip.LEDCount, channelOrder, transport)
	defer led.Close()

	registry := pattern.NewRegistry()
	pattern.RegisterBuiltins(registry)
	loadPatternLibrary(registry, log)

	seed := settings.DefaultState()
	seed.Animation.RefreshRate = cfg.Strip.RefreshRate
	seed.ArtNet.Universe = uint16(cfg.ArtNet.Universe)
	seed.ArtNet.ChannelOffset = cfg.ArtNet.ChannelOffset
	seed.ArtNet.ChannelsPerLED = cfg.ArtNet.ChannelsPerLED
	seed.ArtNet.GroupSize = cfg.ArtNet.GroupSize
	seed.EnableArtNet = cfg.ArtNet.Enabled
	seed.EnableSync = cfg.Sync.Enabled
	seed.SyncMasterMode = cfg.Sync.MasterMode
	seed.SyncInterval = time.Duration(cfg.Sync.Interval * float64(time.Second))
	store := settings.NewStore(seed)
	initial := store.Get()

	hub := visualizer.NewHub()
	go hub.Run()

	m := metrics.NewMetrics()

	ctrl := animation.New(led, registry, animation.LineMapping, initial.Animation, logger.WithComponent("animation"), hub)
	go watchAnimationErrors(ctrl, log)

	receiverFactory := func() *artnet.Receiver {
		return artnet.New(store.Get().ArtNet, led, logger.WithComponent("artnet"))
	}

	arb := arbiter.New(led, ctrl, receiverFactory, logger.WithComponent("arbiter"))

	opStore, err := opstore.New(opstore.Config{
		Driver: opstore.Driver(cfg.OpStore.Driver),
		DSN:    cfg.OpStore.DSN,
	})
	if err != nil {
		log.Warn("operational sample store unavailable, continuing without history", zap.Error(err))
	} else {
		defer opStore.Close()
		go sampleOperationalHistory(opStore, m, log)

		maxAge := time.Duration(cfg.OpStore.RetentionMaxDays) * 24 * time.Hour
		retention, err := opstore.NewRetentionScheduler(opStore, cfg.OpStore.RetentionCron, maxAge)
		if err != nil {
			log.Warn("operational sample retention schedule invalid, samples will accumulate unpruned", zap.Error(err))
		} else {
			retention.Start()
			defer retention.Stop()
		}
	}

	var syncMaster *clocksync.Master
	var syncSlave *clocksync.Slave

	applyState := func(s settings.State) {
		ctrl.UpdateSettings(s.Animation)
		m.SetGroupCount(len(s.Animation.Groups))

		if s.EnableArtNet {
			arb.EnableArtNet()
		} else {
			arb.StartAnimating()
		}

		if syncMaster != nil {
			syncMaster.Stop()
			syncMaster = nil
		}
		if syncSlave != nil {
			syncSlave.Stop()
			syncSlave = nil
		}
		if s.EnableSync {
			if s.SyncMasterMode {
				syncMaster = clocksync.NewMaster(ctrl, s.SyncInterval, logger.WithComponent("clocksync"))
				if err := syncMaster.Start(); err != nil {
					log.Warn("clock sync master failed to start", zap.Error(err))
				}
			} else {
				syncSlave = clocksync.NewSlave(ctrl, logger.WithComponent("clocksync"))
				if err := syncSlave.Start(); err != nil {
					log.Warn("clock sync slave failed to start", zap.Error(err))
				}
			}
		}
	}
	store.OnChange(applyState)
	applyState(initial)

	var mqttPublisher *mqttstatus.Publisher
	if brokerURL := os.Getenv("LEDCTRL_MQTT_BROKER"); brokerURL != "" {
		mqttPublisher, err = mqttstatus.NewPublisher(mqttstatus.Config{
			BrokerURL: brokerURL,
			ClientID:  "ledctrl-" + hostnameOrDefault(),
			DeviceID:  hostnameOrDefault(),
		}, logger.WithComponent("mqttstatus"))
		if err != nil {
			log.Warn("mqtt status publisher unavailable", zap.Error(err))
		} else {
			defer mqttPublisher.Close()
			go reportStatus(ctrl, arb, mqttPublisher, m)
		}
	}

	var relay *visualizer.Relay
	if relayURL := os.Getenv("LEDCTRL_VISUALIZER_RELAY"); relayURL != "" {
		relay = visualizer.NewRelay(relayURL, logger.WithComponent("visualizer-relay"))
		relay.Start(hub)
		defer relay.Stop()
	}

	checker := health.NewHealthChecker()
	checker.RegisterCheck("goroutines", health.GoroutineHealthCheck(runtime.NumGoroutine, 5000), 30*time.Second)
	checker.RegisterCheck("arbiter", func(ctx context.Context) (health.Status, string) {
		return health.StatusHealthy, arb.State().String()
	}, 10*time.Second)

	if monitor := initGPIOMonitor(hub, log); monitor != nil {
		go monitor.Start()
		defer monitor.Stop()
	}
	registerThermalCheck(checker, log)

	ingressSrv := ingress.New(ingress.Config{
		APIKeyHash: os.Getenv("LEDCTRL_API_KEY_HASH"),
	}, store, m, checker, logger.WithComponent("ingress"))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Info("ingress listening", zap.String("addr", addr))
		if err := ingressSrv.Listen(addr); err != nil {
			log.Error("ingress server stopped", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ingressSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("ingress shutdown error", zap.Error(err))
	}
	arb.Stop()
	if syncMaster != nil {
		syncMaster.Stop()
	}
	if syncSlave != nil {
		syncSlave.Stop()
	}
}

func initHAL(log *zap.Logger) hal.HAL {
	h, err := hal.GetGlobalHAL()
	if err == nil {
		return h
	}
	rpiHAL, err := hal.NewRaspberryPiHAL()
	if err != nil {
		log.Warn("no Raspberry Pi HAL available, falling back to mock HAL", zap.Error(err))
		mock := hal.NewMockHAL()
		hal.SetGlobalHAL(mock)
		return mock
	}
	hal.SetGlobalHAL(rpiHAL)
	return rpiHAL
}

func buildTransport(cfg config.StripConfig, hardware hal.HAL) (strip.Transport, strip.ChannelOrder, error) {
	order := parseChannelOrder(cfg.ChannelOrder)

	switch cfg.Transport {
	case "serial":
		t, err := strip.NewSerialTransport(cfg.SerialPort, cfg.SerialBaud, order.ChannelsPerLED())
		return t, order, err
	case "udp":
		t, err := strip.NewUDPTransport(cfg.RemoteAddr, order.ChannelsPerLED())
		return t, order, err
	default:
		t, err := strip.NewLocalTransport(hardware, cfg.SPIBus, cfg.SPIDevice)
		return t, order, err
	}
}

func parseChannelOrder(s string) strip.ChannelOrder {
	switch s {
	case "RGB":
		return strip.OrderRGB
	case "RBG":
		return strip.OrderRBG
	case "GBR":
		return strip.OrderGBR
	case "BRG":
		return strip.OrderBRG
	case "BGR":
		return strip.OrderBGR
	case "RGBW":
		return strip.OrderRGBW
	case "RBGW":
		return strip.OrderRBGW
	case "GRBW":
		return strip.OrderGRBW
	case "GBRW":
		return strip.OrderGBRW
	case "BRGW":
		return strip.OrderBRGW
	default:
		return strip.OrderGRB
	}
}

func watchAnimationErrors(ctrl *animation.Controller, log *zap.Logger) {
	for err := range ctrl.Errors() {
		log.Warn("animation frame error", zap.Error(err))
	}
}

func reportStatus(ctrl *animation.Controller, arb *arbiter.Arbiter, pub *mqttstatus.Publisher, m *metrics.Metrics) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		fps := ctrl.FrameRate()
		m.SetAnimationFPS(fps)
		m.SetArbiterState(int(arb.State()))
		pub.PublishFPS(fps)
		pub.PublishArbiterState(arb.State().String())
	}
}

func sampleOperationalHistory(store opstore.Store, m *metrics.Metrics, log *zap.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		snap := m.GetMetrics()
		anim, _ := snap["animation"].(map[string]interface{})
		an, _ := snap["artnet"].(map[string]interface{})

		sample := &opstore.OperationalSample{
			Timestamp:     time.Now(),
			FPS:           floatField(anim, "fps"),
			ArtNetPackets: int64Field(an, "packets_total"),
			ArtNetDropped: int64Field(an, "dropped_total"),
			ArbiterState:  int(int64Field(anim, "arbiter_state")),
			GroupCount:    int(int64Field(anim, "group_count")),
		}
		if err := store.SaveSample(sample); err != nil {
			log.Warn("failed to save operational sample", zap.Error(err))
		}
	}
}

func floatField(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func int64Field(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// initGPIOMonitor builds a pin-state monitor that relays every change
// to the visualizer hub, so an installer's dashboard can see a wired
// override button or mode switch change state in real time. Disabled
// by default: most deployments don't wire front-panel GPIO at all.
func initGPIOMonitor(hub *visualizer.Hub, log *zap.Logger) *hal.GPIOMonitor {
	pollMs, err := strconv.Atoi(os.Getenv("LEDCTRL_GPIO_POLL_MS"))
	if err != nil || pollMs <= 0 {
		return nil
	}

	monitor := hal.NewGPIOMonitor(pollMs, func(state hal.GPIOMonitorState) {
		hub.Broadcast(visualizer.MessageTypeNotification, map[string]interface{}{
			"gpio": state,
		})
	})
	log.Info("GPIO monitor enabled", zap.Int("poll_ms", pollMs))
	return monitor
}

// registerThermalCheck wires a DS18B20-class sensor on the 1-Wire bus
// into the health checker, if LEDCTRL_ONEWIRE_DEVICE names one. This
// is driver-board ambient temperature, unrelated to animation state,
// and kept outside the strip's own control path: a stuck sensor read
// affects nothing but the reported health status.
func registerThermalCheck(checker *health.HealthChecker, log *zap.Logger) {
	deviceID := os.Getenv("LEDCTRL_ONEWIRE_DEVICE")
	if deviceID == "" {
		return
	}

	bus, err := hal.NewLinuxOneWire()
	if err != nil {
		log.Warn("1-Wire bus unavailable, skipping thermal check", zap.Error(err))
		return
	}

	checker.RegisterCheck("driver_temperature", func(ctx context.Context) (health.Status, string) {
		celsius, err := readOneWireTemperature(bus, deviceID)
		if err != nil {
			return health.StatusUnhealthy, err.Error()
		}
		switch {
		case celsius >= 80:
			return health.StatusUnhealthy, fmt.Sprintf("%.1f°C", celsius)
		case celsius >= 65:
			return health.StatusDegraded, fmt.Sprintf("%.1f°C", celsius)
		default:
			return health.StatusHealthy, fmt.Sprintf("%.1f°C", celsius)
		}
	}, 30*time.Second)
}

// readOneWireTemperature parses the kernel w1_slave sysfs format,
// e.g. "... t=23562", into degrees Celsius.
func readOneWireTemperature(bus *hal.LinuxOneWire, deviceID string) (float64, error) {
	data, err := bus.ReadDevice(deviceID)
	if err != nil {
		return 0, err
	}
	idx := strings.LastIndex(string(data), "t=")
	if idx < 0 {
		return 0, fmt.Errorf("unrecognized 1-Wire reading for %s", deviceID)
	}
	milliC, err := strconv.Atoi(strings.TrimSpace(string(data[idx+2:])))
	if err != nil {
		return 0, fmt.Errorf("parse 1-Wire reading for %s: %w", deviceID, err)
	}
	return float64(milliC) / 1000.0, nil
}

// loadPatternLibrary pulls every stored expression pattern from the
// Mongo-backed pattern source, if LEDCTRL_MONGO_URI is set, and
// registers each under pattern.UserPatternBase + its list position —
// so a pattern authored on one node becomes selectable by id on this
// one without a rebuild.
func loadPatternLibrary(registry *pattern.Registry, log *zap.Logger) {
	uri := os.Getenv("LEDCTRL_MONGO_URI")
	if uri == "" {
		return
	}
	if strings.HasPrefix(uri, "enc:") {
		key := os.Getenv("LEDCTRL_CREDENTIALS_KEY")
		if key == "" {
			log.Warn("LEDCTRL_MONGO_URI is encrypted but LEDCTRL_CREDENTIALS_KEY is not set")
			return
		}
		decrypted, err := security.NewEncryptionService(key).Decrypt(strings.TrimPrefix(uri, "enc:"))
		if err != nil {
			log.Warn("failed to decrypt LEDCTRL_MONGO_URI", zap.Error(err))
			return
		}
		uri = decrypted
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	lib, err := patternlib.Connect(ctx, patternlib.Config{
		URI:      uri,
		Database: envOrDefault("LEDCTRL_MONGO_DATABASE", "ledctrl"),
	})
	if err != nil {
		log.Warn("pattern library unavailable", zap.Error(err))
		return
	}
	defer lib.Close(ctx)

	entries, err := lib.List(ctx)
	if err != nil {
		log.Warn("failed to list stored patterns", zap.Error(err))
		return
	}

	for i, entry := range entries {
		_, prog, err := lib.Load(ctx, entry.Name)
		if err != nil {
			log.Warn("skipping uncompilable stored pattern", zap.String("name", entry.Name), zap.Error(err))
			continue
		}

		mode := color.ModeHSV
		if entry.Mode == "rgb" {
			mode = color.ModeRGB
		}

		id := pattern.UserPatternBase + i
		registry.Register(pattern.Pattern{
			ID:   id,
			Name: entry.Name,
			Mode: mode,
			Eval: exprPatternFunc(prog, mode),
		})
		log.Info("registered stored pattern", zap.String("name", entry.Name), zap.Int("id", id))
	}
}

// exprPatternFunc adapts a compiled expression program into a
// pattern.Func: the expression's result drives hue (HSV mode) or an
// equal R=G=B level (RGB mode), at full saturation/value.
func exprPatternFunc(prog *expr.Program, mode color.Mode) pattern.Func {
	return func(in pattern.Input) pattern.Output {
		v := prog.Eval(expr.Vars{
			X: in.X, Y: in.Y, Z: in.Z,
			T: in.TScaled, DT: in.DT, Scale: in.Scale,
		})
		level := wrap01(v)
		return pattern.Output{
			HSV:  color.HSV{H: level, S: 1, V: 1},
			RGB:  color.RGB{R: level, G: level, B: level},
			Mode: mode,
		}
	}
}

func wrap01(v float64) float64 {
	v = v - float64(int(v))
	if v < 0 {
		v += 1
	}
	return v
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func hostnameOrDefault() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "ledctrl"
	}
	return name
}
