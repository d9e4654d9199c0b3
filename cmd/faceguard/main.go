package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/faceguard/faceguard/pkg/config"
	"github.com/faceguard/faceguard/pkg/imaging"
	"github.com/faceguard/faceguard/pkg/liveness"
	"github.com/faceguard/faceguard/pkg/logging"
	"github.com/faceguard/faceguard/pkg/pipeline"
	"github.com/faceguard/faceguard/pkg/storage"
)

const version = "0.1.0"

// Command represents a CLI command.
type Command struct {
	Name        string
	Description string
	Usage       string
	Run         func(args []string) error
}

var (
	cfg      *config.Config
	commands map[string]*Command
)

func init() {
	commands = map[string]*Command{
		"verify": {
			Name:        "verify",
			Description: "Verify whether two images show the same person",
			Usage:       "faceguard verify <image-a> <image-b>",
			Run:         cmdVerify,
		},
		"detect": {
			Name:        "detect",
			Description: "Detect the primary face in an image",
			Usage:       "faceguard detect <image>",
			Run:         cmdDetect,
		},
		"spoof": {
			Name:        "spoof",
			Description: "Run the anti-spoofing check on an image",
			Usage:       "faceguard spoof <image>",
			Run:         cmdSpoof,
		},
		"enroll": {
			Name:        "enroll",
			Description: "Enroll a subject from one or more face images",
			Usage:       "faceguard enroll <subject> <image> [image...]",
			Run:         cmdEnroll,
		},
		"auth": {
			Name:        "auth",
			Description: "Authenticate an image against an enrolled subject",
			Usage:       "faceguard auth <subject> <image>",
			Run:         cmdAuth,
		},
		"list": {
			Name:        "list",
			Description: "List all enrolled subjects",
			Usage:       "faceguard list",
			Run:         cmdList,
		},
		"remove": {
			Name:        "remove",
			Description: "Remove an enrolled subject",
			Usage:       "faceguard remove <subject>",
			Run:         cmdRemove,
		},
		"config": {
			Name:        "config",
			Description: "Show current configuration",
			Usage:       "faceguard config",
			Run:         cmdConfig,
		},
		"download-models": {
			Name:        "download-models",
			Description: "Download the ONNX models",
			Usage:       "faceguard download-models [directory]",
			Run:         cmdDownloadModels,
		},
		"version": {
			Name:        "version",
			Description: "Show version information",
			Usage:       "faceguard version",
			Run:         cmdVersion,
		},
		"help": {
			Name:        "help",
			Description: "Show help information",
			Usage:       "faceguard help [command]",
			Run:         cmdHelp,
		},
	}
}

func main() {
	// Parse global flags
	configFile := flag.String("config", "", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	args := flag.Args()

	// Load configuration
	var err error
	if *configFile != "" {
		cfg, err = config.Load(*configFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	cfg.ExpandPaths()

	logLevel := cfg.Logging.Level
	if *debug {
		logLevel = "debug"
	}
	if err := logging.Init(logLevel, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
	}

	logging.Debugf("FaceGuard v%s starting", version)
	logging.Debugf("Config loaded, data dir: %s", cfg.Storage.DataDir)

	if len(args) < 1 {
		printUsage()
		os.Exit(0)
	}

	cmdName := args[0]
	cmd, ok := commands[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmdName)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.Run(args[1:]); err != nil {
		logging.WithError(err).Errorf("Command '%s' failed", cmdName)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("FaceGuard - Face Verification and Anti-Spoofing")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Usage: faceguard [options] <command> [arguments]")
	fmt.Println("\nOptions:")
	fmt.Println("  -config <file>   Path to configuration file")
	fmt.Println("  -debug           Enable debug logging")
	fmt.Println("\nCommands:")
	for _, name := range []string{"verify", "detect", "spoof", "enroll", "auth", "list", "remove", "config", "download-models", "version", "help"} {
		cmd := commands[name]
		fmt.Printf("  %-16s %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println("\nExamples:")
	fmt.Println("  faceguard verify id.jpg selfie.jpg   # Compare two face images")
	fmt.Println("  faceguard enroll alice a1.jpg a2.jpg # Enroll 'alice' from two images")
	fmt.Println("  faceguard auth alice probe.jpg       # Authenticate against 'alice'")
	fmt.Println("\nRun 'faceguard help <command>' for more information on a command.")
}

// openPipeline loads the models; the caller must Close the result.
func openPipeline() (*pipeline.Pipeline, error) {
	p, err := pipeline.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load models (run 'faceguard download-models'?): %w", err)
	}
	return p, nil
}

func openStore() (*storage.FileStore, error) {
	return storage.NewFileStore(cfg.Storage.DataDir, cfg.Storage.EncryptionEnabled)
}

func printSpoof(label string, res *liveness.Result) {
	if res == nil {
		return
	}
	verdict := "GENUINE"
	if !res.Real {
		verdict = "SPOOF"
	}
	fmt.Printf("%s spoof check: %s (score %.4f, realness %.4f, fakeness %.4f)\n",
		label, verdict, res.Score, res.Realness, res.Fakeness)
}

// Command implementations

func cmdVerify(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("two images required\nUsage: faceguard verify <image-a> <image-b>")
	}

	imgA, err := imaging.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	imgB, err := imaging.Open(args[1])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[1], err)
	}

	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	result, err := p.Verify(imgA, imgB)
	if err != nil {
		return err
	}

	if result.FaceA == nil {
		fmt.Printf("No face found in %s\n", args[0])
		return nil
	}
	if result.FaceB == nil {
		fmt.Printf("No face found in %s\n", args[1])
		return nil
	}

	fmt.Printf("Similarity: %.4f (threshold %.2f)\n", result.Match.Similarity, result.Match.Threshold)
	if result.Match.Verified {
		fmt.Println("Result:     MATCH")
	} else {
		fmt.Println("Result:     NO MATCH")
	}
	printSpoof("Image A", result.SpoofA)
	printSpoof("Image B", result.SpoofB)

	if !result.Match.Verified {
		os.Exit(1)
	}
	return nil
}

func cmdDetect(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("image required\nUsage: faceguard detect <image>")
	}

	img, err := imaging.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}

	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	det, err := p.Detect(img)
	if err != nil {
		return err
	}
	if det == nil {
		fmt.Println("No face found.")
		return nil
	}

	fmt.Printf("Face found (confidence %.4f)\n", det.Confidence)
	fmt.Printf("  Box:       x=%d y=%d w=%d h=%d\n", det.Box.X, det.Box.Y, det.Box.Width, det.Box.Height)
	for i, name := range []string{"left eye", "right eye", "nose", "left mouth", "right mouth"} {
		fmt.Printf("  %-11s (%d, %d)\n", name+":", det.Landmarks[i].X, det.Landmarks[i].Y)
	}
	if det.MultipleFaces {
		fmt.Println("  Note: multiple faces detected, largest selected.")
	}
	return nil
}

func cmdSpoof(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("image required\nUsage: faceguard spoof <image>")
	}

	img, err := imaging.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}

	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	res, err := p.SpoofCheck(img)
	if err != nil {
		return err
	}
	if res == nil {
		fmt.Println("No face found.")
		return nil
	}

	printSpoof("Image", res)
	if !res.Real {
		os.Exit(1)
	}
	return nil
}

func cmdEnroll(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("subject and at least one image required\nUsage: faceguard enroll <subject> <image> [image...]")
	}
	subject := args[0]
	images := args[1:]

	store, err := openStore()
	if err != nil {
		return err
	}
	if store.Exists(subject) {
		return fmt.Errorf("subject '%s' is already enrolled. Use 'faceguard remove %s' first", subject, subject)
	}

	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	var templates []storage.Template
	for _, path := range images {
		img, err := imaging.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}

		analysis, err := p.Analyze(img)
		if err != nil {
			return fmt.Errorf("failed to analyze %s: %w", path, err)
		}
		if analysis == nil {
			return fmt.Errorf("no face found in %s", path)
		}
		if analysis.Spoof != nil && !analysis.Spoof.Real {
			return fmt.Errorf("spoof check failed for %s (score %.4f)", path, analysis.Spoof.Score)
		}

		templates = append(templates, storage.NewTemplate(analysis.Embedding, path))
		fmt.Printf("Captured template from %s\n", path)
	}

	if err := store.Enroll(subject, templates, nil); err != nil {
		return err
	}

	fmt.Printf("Enrolled '%s' with %d template(s).\n", subject, len(templates))
	return nil
}

func cmdAuth(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("subject and image required\nUsage: faceguard auth <subject> <image>")
	}
	subject := args[0]

	store, err := openStore()
	if err != nil {
		return err
	}
	if !store.Exists(subject) {
		return fmt.Errorf("subject '%s' is not enrolled. Use 'faceguard enroll %s <image>' first", subject, subject)
	}

	img, err := imaging.Open(args[1])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[1], err)
	}

	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	analysis, err := p.Analyze(img)
	if err != nil {
		return err
	}
	if analysis == nil {
		fmt.Println("No face found.")
		os.Exit(1)
	}
	if analysis.Spoof != nil && !analysis.Spoof.Real {
		fmt.Printf("Spoof check failed (score %.4f). Access denied.\n", analysis.Spoof.Score)
		os.Exit(1)
	}

	best, err := store.BestMatch(subject, analysis.Embedding)
	if err != nil {
		return err
	}

	threshold := cfg.Recognition.Threshold
	fmt.Printf("Best similarity for '%s': %.4f (threshold %.2f)\n", subject, best, threshold)
	if best >= threshold {
		fmt.Println("Access granted.")
		if err := store.TouchLastUsed(subject); err != nil {
			logging.WithError(err).Warn("Failed to update last-used timestamp")
		}
		return nil
	}

	fmt.Println("Access denied.")
	os.Exit(1)
	return nil
}

func cmdList(args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	subjects, err := store.List()
	if err != nil {
		return err
	}

	if len(subjects) == 0 {
		fmt.Println("No subjects enrolled.")
		return nil
	}

	fmt.Println("Enrolled subjects:")
	for _, subject := range subjects {
		line := "  - " + subject
		if rec, err := store.Load(subject); err == nil {
			line = fmt.Sprintf("%s (%d templates, enrolled %s)",
				line, len(rec.Templates), rec.EnrolledAt.Format("2006-01-02"))
		}
		fmt.Println(line)
	}
	fmt.Printf("\nTotal: %d subject(s)\n", len(subjects))

	return nil
}

func cmdRemove(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("subject required\nUsage: faceguard remove <subject>")
	}
	subject := args[0]

	store, err := openStore()
	if err != nil {
		return err
	}

	if err := store.Delete(subject); err != nil {
		if errors.Is(err, storage.ErrSubjectNotFound) {
			return fmt.Errorf("subject '%s' is not enrolled", subject)
		}
		return err
	}

	fmt.Printf("Templates for '%s' have been removed.\n", subject)
	return nil
}

func cmdConfig(args []string) error {
	fmt.Println("Current Configuration:")
	fmt.Println("======================")
	fmt.Println()
	fmt.Println("[Detection]")
	fmt.Printf("  Input Size:      %dx%d\n", cfg.Detection.InputWidth, cfg.Detection.InputHeight)
	fmt.Printf("  Confidence:      %.2f\n", cfg.Detection.ConfidenceThreshold)
	fmt.Printf("  IoU Threshold:   %.2f\n", cfg.Detection.IoUThreshold)
	fmt.Printf("  Model Path:      %s\n", cfg.Detection.ModelPath)
	fmt.Println()
	fmt.Println("[Recognition]")
	fmt.Printf("  Threshold:       %.2f\n", cfg.Recognition.Threshold)
	fmt.Printf("  Embedding Size:  %d\n", cfg.Recognition.EmbeddingSize)
	fmt.Printf("  Model Path:      %s\n", cfg.Recognition.ModelPath)
	fmt.Println()
	fmt.Println("[Anti-Spoofing]")
	fmt.Printf("  Enabled:         %t\n", cfg.Spoof.Enabled)
	fmt.Printf("  Crop Scales:     %.1f / %.1f\n", cfg.Spoof.PrimaryScale, cfg.Spoof.SecondaryScale)
	fmt.Printf("  Primary Model:   %s\n", cfg.Spoof.PrimaryModel)
	fmt.Printf("  Secondary Model: %s\n", cfg.Spoof.SecondaryModel)
	fmt.Println()
	fmt.Println("[Inference]")
	fmt.Printf("  Backend:         %s\n", cfg.Inference.Backend)
	fmt.Printf("  Library Path:    %s\n", cfg.Inference.LibraryPath)
	fmt.Println()
	fmt.Println("[Storage]")
	fmt.Printf("  Data Dir:        %s\n", cfg.Storage.DataDir)
	fmt.Printf("  Encryption:      %t\n", cfg.Storage.EncryptionEnabled)
	fmt.Println()
	fmt.Println("[Logging]")
	fmt.Printf("  Level:           %s\n", cfg.Logging.Level)
	fmt.Printf("  File:            %s\n", cfg.Logging.File)

	return nil
}

func cmdVersion(args []string) error {
	fmt.Printf("FaceGuard v%s\n", version)
	fmt.Println("Face Verification and Anti-Spoofing")
	return nil
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		printUsage()
		return nil
	}

	cmdName := args[0]
	cmd, ok := commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	fmt.Printf("Command: %s\n", cmd.Name)
	fmt.Printf("Description: %s\n", cmd.Description)
	fmt.Printf("Usage: %s\n", cmd.Usage)

	switch cmdName {
	case "verify":
		fmt.Println("\nExit code is 0 on a match, 1 otherwise.")
		fmt.Println("When anti-spoofing is enabled, both images are also checked for")
		fmt.Println("presentation attacks and the results are printed.")
	case "enroll":
		fmt.Println("\nEach image must contain exactly the subject's face. Providing")
		fmt.Println("several angles improves later authentication. Templates are")
		fmt.Println("encrypted with a machine-bound key before they touch disk.")
	case "auth":
		fmt.Println("\nThe probe image is compared against every enrolled template;")
		fmt.Println("the best similarity decides. Exit code is 0 on success.")
	case "config":
		fmt.Println("\nConfiguration Locations:")
		fmt.Println("  System: /etc/faceguard/faceguard.yaml")
		fmt.Println("  User:   ~/.config/faceguard/faceguard.yaml")
		fmt.Println("\nUse -config flag to specify a custom config file.")
	}

	return nil
}
