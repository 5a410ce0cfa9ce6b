// cmd/aqmon tails a station's serial uplink on a host, exposes the
// readings as Prometheus gauges and optionally republishes them to an
// MQTT broker. Two input shapes are supported: the JSON-lines uplink
// format, and raw Plantower frames for a sensor wired straight to the
// host (-raw).
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"aqstation-go/drivers/pms5x03"
	"aqstation-go/services/station"
	"aqstation-go/types"
)

// CLI args
var (
	listenAddr  = flag.String("listen-address", ":8080", "The address to listen on for HTTP requests.")
	serialPath  = flag.String("serial", "/dev/ttyACM0", "serial device (or file) carrying the station uplink")
	stationID   = flag.String("station", "station", "station label on exported metrics")
	rawFrames   = flag.Bool("raw", false, "input is raw Plantower frames, not the JSON uplink")
	reopenDelay = flag.Duration("reopen-delay", 5*time.Second, "wait before reopening the serial device after EOF or error")
	mqttBroker  = flag.String("mqtt-broker", "", "optional MQTT broker, e.g. tcp://localhost:1883")
	mqttTopic   = flag.String("mqtt-topic", "aqstation/reading", "MQTT topic for republished readings")
)

// metrics to expose to Prometheus
var (
	gaugePM1      = newGauge("air_pm1", "PM1.0 concentration (units: ug/m3)")
	gaugePM25     = newGauge("air_pm25", "PM2.5 concentration (units: ug/m3)")
	gaugePM10     = newGauge("air_pm10", "PM10 concentration (units: ug/m3)")
	gaugeTemp     = newGauge("air_temperature", "Air temperature (units: degrees Celsius)")
	gaugeHumidity = newGauge("air_humidity", "Relative humidity (units: %)")
	gaugeWakes    = newGauge("station_wake_cycles", "Wake cycles since the station's cold start")
	gaugeStale    = newGauge("station_reading_stale", "1 when the station is republishing a retained reading")
)

func newGauge(name string, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		[]string{"station"},
	)
}

func init() {
	prometheus.MustRegister(gaugePM1)
	prometheus.MustRegister(gaugePM25)
	prometheus.MustRegister(gaugePM10)
	prometheus.MustRegister(gaugeTemp)
	prometheus.MustRegister(gaugeHumidity)
	prometheus.MustRegister(gaugeWakes)
	prometheus.MustRegister(gaugeStale)

	prometheus.MustRegister(prometheus.NewBuildInfoCollector())

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	flag.Parse()

	go func() {
		http.Handle("/metrics", promhttp.HandlerFor(
			prometheus.DefaultGatherer,
			promhttp.HandlerOpts{
				EnableOpenMetrics: true,
			},
		))
		log.Panic(http.ListenAndServe(*listenAddr, nil))
	}()

	var pub mqtt.Client
	if *mqttBroker != "" {
		var err error
		pub, err = connectMQTT(*mqttBroker)
		if err != nil {
			log.Fatalf("mqtt connect: %s", err)
		}
	}

	for {
		if err := tail(pub); err != nil {
			log.Errorf("uplink: %s", err)
		}
		time.Sleep(*reopenDelay)
	}
}

func connectMQTT(broker string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID("aqmon-" + *stationID)
	opts.SetCleanSession(true)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Warnf("mqtt connect failed, retrying: %s", token.Error())
			return token.Error()
		}
		return nil
	}, bo)
	if err != nil {
		return nil, errors.Wrap(err, "could not establish MQTT connection")
	}
	log.Printf("connected to MQTT broker at %s", broker)
	return client, nil
}

// tail reads the serial device until EOF or error.
func tail(pub mqtt.Client) error {
	f, err := os.Open(*serialPath)
	if err != nil {
		return errors.Wrapf(err, "open %s", *serialPath)
	}
	defer f.Close()
	log.Printf("reading uplink from %s", *serialPath)

	if *rawFrames {
		return tailRaw(f, pub)
	}
	return tailJSON(f, pub)
}

// uplinkLine mirrors the station's JSON-lines wire record.
type uplinkLine struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

func tailJSON(f *os.File, pub mqtt.Client) error {
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var line uplinkLine
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			log.Warnf("skipping malformed line: %s", err)
			continue
		}
		if line.Topic != "station/reading" {
			continue
		}
		var r types.ReadingValue
		if err := json.Unmarshal(line.Payload, &r); err != nil {
			log.Warnf("skipping malformed reading: %s", err)
			continue
		}
		log.Printf("reading: pm2.5 %d ug/m3 (%s) temp %.1fC rh %.1f%% wakes %d",
			r.PM25, r.Category, float64(r.DeciTempC)/10, float64(r.DeciRH)/10, r.Wakes)

		gaugePM1.WithLabelValues(*stationID).Set(float64(r.PM1))
		gaugePM25.WithLabelValues(*stationID).Set(float64(r.PM25))
		gaugePM10.WithLabelValues(*stationID).Set(float64(r.PM10))
		gaugeTemp.WithLabelValues(*stationID).Set(float64(r.DeciTempC) / 10)
		gaugeHumidity.WithLabelValues(*stationID).Set(float64(r.DeciRH) / 10)
		gaugeWakes.WithLabelValues(*stationID).Set(float64(r.Wakes))
		if r.Stale {
			gaugeStale.WithLabelValues(*stationID).Set(1)
		} else {
			gaugeStale.WithLabelValues(*stationID).Set(0)
		}

		republish(pub, &r)
	}
	return sc.Err()
}

// tailRaw decodes Plantower frames straight off the wire and classifies
// them locally.
func tailRaw(f *os.File, pub mqtt.Client) error {
	sr := pms5x03.NewStreamReader(f)
	for {
		frame, err := sr.Next()
		if err != nil {
			return err
		}
		cat := station.Classify(frame.PM25Std)
		log.Printf("frame: pm2.5 %d ug/m3 (%s)", frame.PM25Std, cat)

		gaugePM1.WithLabelValues(*stationID).Set(float64(frame.PM1Std))
		gaugePM25.WithLabelValues(*stationID).Set(float64(frame.PM25Std))
		gaugePM10.WithLabelValues(*stationID).Set(float64(frame.PM10Std))

		republish(pub, &types.ReadingValue{
			PM1:      frame.PM1Std,
			PM25:     frame.PM25Std,
			PM10:     frame.PM10Std,
			Category: cat.String(),
		})
	}
}

func republish(pub mqtt.Client, r *types.ReadingValue) {
	if pub == nil {
		return
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return
	}
	token := pub.Publish(*mqttTopic, 0, false, payload)
	token.Wait()
	if token.Error() != nil {
		log.Errorf("mqtt publish: %s", token.Error())
	}
}
