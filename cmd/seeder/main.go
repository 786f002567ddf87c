package main

import (
	"bufio"
	"context"
	"flag"
	"iter"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/poiesic/medscribe"
	"github.com/poiesic/medscribe/config"
	"github.com/poiesic/medscribe/knowledge"
)

var snippets = []string{
	"Diabetes complications include diabetic neuropathy, retinopathy and nephropathy.",
	"Poorly controlled blood sugar damages small blood vessels in the eyes, kidneys and nerves.",
	"Metformin is the usual first-line medicine for type 2 diabetes.",
	"Insulin therapy is required in type 1 diabetes because the pancreas makes little or no insulin.",
	"Excessive thirst and frequent urination are early signs of high blood sugar.",
	"Hypertension is blood pressure persistently at or above 130/80 mmHg.",
	"Untreated high blood pressure raises the risk of stroke, heart failure and kidney disease.",
	"Lisinopril and losartan lower blood pressure by acting on the renin-angiotensin system.",
	"Amlodipine is a calcium channel blocker commonly used for hypertension.",
	"A persistent cough lasting more than three weeks should be investigated.",
	"Cough with fever and shortness of breath may indicate pneumonia.",
	"A chest x-ray helps distinguish pneumonia from bronchitis.",
	"Most acute bronchitis is viral and does not need antibiotics.",
	"Amoxicillin is a common first choice for uncomplicated bacterial pneumonia in adults.",
	"Influenza usually starts suddenly with fever, chills, muscle pain and fatigue.",
	"Annual vaccination is the most effective way to prevent influenza.",
	"Asthma causes episodes of wheezing, chest tightness and shortness of breath.",
	"Albuterol inhalers relieve acute asthma symptoms by relaxing the airways.",
	"Inhaled corticosteroids reduce airway inflammation in persistent asthma.",
	"COPD is a progressive lung disease most often caused by smoking.",
	"Migraine headaches are often one-sided and may come with nausea and sensitivity to light.",
	"Ibuprofen and acetaminophen relieve mild to moderate pain and reduce fever.",
	"Long-term ibuprofen use can irritate the stomach and affect the kidneys.",
	"Chest pain spreading to the arm or jaw may signal a heart attack and needs urgent care.",
	"An ECG records the electrical activity of the heart and can detect arrhythmias.",
	"Atorvastatin lowers LDL cholesterol and reduces cardiovascular risk.",
	"Heart failure often presents with swelling of the legs, fatigue and breathlessness when lying flat.",
	"Gastroenteritis causes diarrhea, vomiting and abdominal pain, usually from a viral infection.",
	"Oral rehydration is the mainstay of treatment for mild dehydration.",
	"GERD causes heartburn and is commonly treated with proton pump inhibitors such as omeprazole.",
	"Urinary tract infections cause painful, frequent urination and are treated with antibiotics.",
	"Hypothyroidism can cause fatigue, weight gain and cold intolerance; levothyroxine replaces thyroid hormone.",
	"Depression is characterized by persistent low mood and loss of interest for at least two weeks.",
	"Sertraline is a selective serotonin reuptake inhibitor used for depression and anxiety.",
	"Iron deficiency is the most common cause of anemia worldwide.",
	"Osteoarthritis causes joint pain and stiffness that worsens with activity.",
	"Physical therapy improves strength and mobility after joint injury or surgery.",
	"Sudden numbness on one side of the body or confusion may indicate a stroke.",
	"Fever is generally defined as a body temperature of 38 degrees Celsius or higher.",
	"Sinusitis often follows a cold and causes facial pressure and nasal congestion.",
}

var (
	seedFileName = flag.String("src", "", "file of seed data, one snippet per line")
	dbPath       = flag.String("db", "./medscribe_db", "path to the BadgerDB database directory")
	configPath   = flag.String("config", "", "path to a medscribe YAML config file")
	batchSize    = flag.Int("batch-size", 8, "snippets per embedding request")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// linesFromFile returns an iterator over lines in a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	}, nil
}

// linesFromSlice returns an iterator over a slice of strings.
func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

// seed loads every line of source into the knowledge base.
func seed(ctx context.Context, svc *medscribe.Service, source iter.Seq[string], batchSize int) (int, error) {
	var texts []string
	for line := range source {
		texts = append(texts, line)
	}
	progress := knowledge.NewProgressTracker(os.Stdout, len(texts), batchSize*4)
	ids, err := svc.IngestKnowledge(ctx, texts, &knowledge.IngestOptions{
		BatchSize: batchSize,
		Progress:  progress,
	})
	return len(ids), err
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	svc, err := medscribe.NewService(ctx, *dbPath, cfg.ServiceOptions()...)
	if err != nil {
		panic(err)
	}
	defer svc.Close()

	// Determine source of seed data
	var source iter.Seq[string]
	if *seedFileName != "" {
		source, err = linesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = linesFromSlice(snippets)
	}

	n, err := seed(ctx, svc, source, *batchSize)
	if err != nil {
		panic(err)
	}
	slog.Info("seeded knowledge base", "snippets", n, "db", *dbPath)
}
