package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/hba.go/pkg/ui/mqtt"
	"github.com/robotalks/hba.go/pkg/ui/pb"
)

var (
	mqttURL = "mqtt://localhost:1883/hba/"
)

func init() {
	if val := os.Getenv("HBA_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}

	q.Sub("#", func(topic string, payload []byte) {
		if strings.HasSuffix(topic, mqtt.SetSuffix) {
			log.Printf("%s: %q", topic, payload)
			return
		}
		msg, err := pb.DecodeResourceValue(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: [%s] %s", topic, msg.Daemon, msg.String())
	})
	<-(chan struct{})(nil)
}
