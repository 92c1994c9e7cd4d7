package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/osprey-dcs/quartz-config-loader/internal/archive"
	"github.com/osprey-dcs/quartz-config-loader/internal/compiler"
	"github.com/osprey-dcs/quartz-config-loader/internal/config"
	"github.com/osprey-dcs/quartz-config-loader/internal/logger"
	"github.com/osprey-dcs/quartz-config-loader/internal/mqtt"
	"github.com/osprey-dcs/quartz-config-loader/internal/publisher"
	"github.com/osprey-dcs/quartz-config-loader/internal/service"
	"github.com/osprey-dcs/quartz-config-loader/internal/sheet"
	"github.com/osprey-dcs/quartz-config-loader/internal/store"
)

func main() {
	// Parse command line arguments
	var input = flag.String("i", "", "Input channel-configuration file (.csv or .xlsx)")
	var outDir = flag.String("o", "", "Output directory for the normalized output.csv")
	var verbose = flag.Bool("v", false, "Verbose (debug) logging")
	var dryRun = flag.Bool("dry-run", false, "Validate and compile only; skip archive and publish")
	var prefix = flag.String("prefix", "", "Signal name prefix (default: PV_PREFIX env or 'FDAS:')")
	var template = flag.String("template", "", "Write an empty import template (.xlsx) to this path and exit")
	var domains = flag.String("domains", "", "Comma-separated domain columns for -template (e.g., 'VDC,TC')")
	flag.Parse()

	if *template != "" {
		if err := writeTemplate(*template, *domains); err != nil {
			fmt.Fprintf(os.Stderr, "quartz-config-loader: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Template written to %s\n", *template)
		return
	}

	if *input == "" || *outDir == "" {
		fmt.Fprintln(os.Stderr, "usage: quartz-config-loader -i <input.csv|.xlsx> -o <outdir> [-v] [-dry-run] [-prefix FDAS:]")
		fmt.Fprintln(os.Stderr, "       quartz-config-loader -template <path.xlsx> [-domains VDC,TC]")
		os.Exit(1)
	}

	content, err := os.ReadFile(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quartz-config-loader: %v\n", err)
		os.Exit(1)
	}
	if info, err := os.Stat(*outDir); err != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "quartz-config-loader: output directory %s does not exist\n", *outDir)
		os.Exit(1)
	}

	cfg := config.Load()
	if *prefix != "" {
		cfg.PV.Prefix = *prefix
	}
	level := cfg.Log.Level
	if *verbose {
		level = "debug"
	}

	log, err := logger.NewLogger(level, "console", "quartz-config-loader")
	if err != nil {
		fmt.Fprintf(os.Stderr, "quartz-config-loader: failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 一次性加载与服务端共用发布后端配置；dry-run / sim 不外发
	var backends []publisher.Publisher
	if !*dryRun && !cfg.PV.Sim {
		for _, name := range cfg.PV.Publishers {
			switch name {
			case "redis":
				c := store.NewRedisClient(cfg)
				if err := store.Ping(context.Background(), c); err != nil {
					fmt.Fprintf(os.Stderr, "quartz-config-loader: failed to connect to redis: %v\n", err)
					os.Exit(1)
				}
				defer c.Close()
				backends = append(backends, publisher.NewRedis(c, cfg.PV.LoadsStream, log))
			case "mqtt":
				c, err := mqtt.NewClient(&cfg.MQTT)
				if err != nil {
					fmt.Fprintf(os.Stderr, "quartz-config-loader: %v\n", err)
					os.Exit(1)
				}
				defer c.Disconnect()
				backends = append(backends, publisher.NewMQTT(c, cfg.MQTT.QoS, log))
			case "gateway":
				if cfg.Gateway.URL == "" {
					continue
				}
				timeout := time.Duration(cfg.Gateway.TimeoutSeconds) * time.Second
				backends = append(backends, publisher.NewGateway(cfg.Gateway.URL, timeout, log))
			}
		}
	}
	if len(backends) == 0 {
		backends = append(backends, publisher.NewNop(log))
	}
	multi := publisher.NewMulti(backends...)

	var arch *archive.Store
	if !*dryRun {
		if arch, err = archive.New(cfg.Archive.Dir); err != nil {
			fmt.Fprintf(os.Stderr, "quartz-config-loader: %v\n", err)
			os.Exit(1)
		}
	}

	comp := compiler.New(cfg.PV.Prefix, log)
	svc := service.NewLoaderService(comp, multi, multi, arch, nil, nil, log)

	uploader := os.Getenv("USER")
	if uploader == "" {
		uploader = "cli"
	}

	rec, err := svc.Run(context.Background(), service.LoadRequest{
		Filename:   *input,
		Content:    content,
		UploadedBy: uploader,
		OutputDir:  *outDir,
		DryRun:     *dryRun,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "quartz-config-loader: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s\nsha256: %s\n", rec.Message, rec.SHA256)
}

// writeTemplate 生成导入模板工作簿写到指定路径
func writeTemplate(path, domainList string) error {
	var domains []string
	for _, d := range strings.Split(domainList, ",") {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}
	data, err := sheet.Template(domains)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
