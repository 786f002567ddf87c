package local

import (
	"strings"

	"github.com/poiesic/medscribe/core"
)

// LexiconEntry is a medical term known to the local models.
type LexiconEntry struct {
	Term        string
	Type        core.EntityType
	Explanation string
}

// maxTermWords is the longest entry in the lexicon, in words.
const maxTermWords = 4

var lexicon = []LexiconEntry{
	// Symptoms
	{"cough", core.EntitySymptom, "A sudden expulsion of air from the lungs that clears the airways."},
	{"fever", core.EntitySymptom, "A body temperature above normal, usually a sign the body is fighting an infection."},
	{"headache", core.EntitySymptom, "Pain anywhere in the region of the head or neck."},
	{"nausea", core.EntitySymptom, "A feeling of sickness with an urge to vomit."},
	{"vomiting", core.EntitySymptom, "Forcefully bringing up the contents of the stomach through the mouth."},
	{"diarrhea", core.EntitySymptom, "Loose, watery bowel movements occurring more often than usual."},
	{"fatigue", core.EntitySymptom, "Persistent tiredness or lack of energy that rest does not relieve."},
	{"dizziness", core.EntitySymptom, "A feeling of being lightheaded, unsteady or that the room is spinning."},
	{"chest pain", core.EntitySymptom, "Discomfort in the chest that can come from the heart, lungs, muscles or digestive tract."},
	{"shortness of breath", core.EntitySymptom, "Difficulty getting enough air into the lungs."},
	{"wheezing", core.EntitySymptom, "A high-pitched whistling sound while breathing, caused by narrowed airways."},
	{"sore throat", core.EntitySymptom, "Pain or irritation of the throat, often worse when swallowing."},
	{"runny nose", core.EntitySymptom, "Excess fluid draining from the nose."},
	{"congestion", core.EntitySymptom, "A blocked or stuffy feeling caused by swollen nasal tissue."},
	{"chills", core.EntitySymptom, "Feeling cold with shivering, often alongside a fever."},
	{"rash", core.EntitySymptom, "An area of irritated or swollen skin that may be red, itchy or painful."},
	{"itching", core.EntitySymptom, "An irritating sensation that causes a desire to scratch the skin."},
	{"abdominal pain", core.EntitySymptom, "Pain felt between the chest and the pelvis."},
	{"back pain", core.EntitySymptom, "Pain felt in the upper or lower back."},
	{"joint pain", core.EntitySymptom, "Discomfort or aching in one or more joints."},
	{"muscle pain", core.EntitySymptom, "Aches or pain in the muscles."},
	{"swelling", core.EntitySymptom, "Enlargement of part of the body, usually from fluid build-up or inflammation."},
	{"palpitations", core.EntitySymptom, "Noticeable sensations of a fast, fluttering or pounding heartbeat."},
	{"insomnia", core.EntitySymptom, "Trouble falling asleep or staying asleep."},
	{"weight loss", core.EntitySymptom, "A decrease in body weight, which may be unintentional."},
	{"blurred vision", core.EntitySymptom, "Loss of sharpness of eyesight, making objects appear out of focus."},
	{"numbness", core.EntitySymptom, "Reduced or absent feeling in part of the body."},
	{"tingling", core.EntitySymptom, "A pins-and-needles sensation, often in the hands or feet."},
	{"constipation", core.EntitySymptom, "Infrequent or difficult bowel movements."},
	{"heartburn", core.EntitySymptom, "A burning feeling in the chest caused by stomach acid."},
	{"night sweats", core.EntitySymptom, "Heavy sweating during sleep that soaks clothing or bedding."},
	{"loss of appetite", core.EntitySymptom, "A reduced desire to eat."},
	{"frequent urination", core.EntitySymptom, "Needing to pass urine more often than usual."},
	{"excessive thirst", core.EntitySymptom, "An abnormally strong and persistent need to drink."},
	{"sneezing", core.EntitySymptom, "A sudden, involuntary burst of air through the nose and mouth."},
	{"fainting", core.EntitySymptom, "A brief loss of consciousness caused by reduced blood flow to the brain."},
	{"confusion", core.EntitySymptom, "Difficulty thinking clearly, concentrating or making decisions."},

	// Conditions
	{"hypertension", core.EntityCondition, "Persistently high blood pressure, which strains the heart and blood vessels."},
	{"high blood pressure", core.EntityCondition, "Blood pressure that stays above the healthy range, also called hypertension."},
	{"diabetes", core.EntityCondition, "A condition in which blood sugar levels are too high."},
	{"type 1 diabetes", core.EntityCondition, "Diabetes in which the pancreas makes little or no insulin."},
	{"type 2 diabetes", core.EntityCondition, "Diabetes in which the body does not use insulin properly."},
	{"asthma", core.EntityCondition, "A long-term condition in which the airways narrow and swell, making breathing difficult."},
	{"pneumonia", core.EntityCondition, "An infection that inflames the air sacs in one or both lungs."},
	{"bronchitis", core.EntityCondition, "Inflammation of the tubes that carry air to the lungs."},
	{"influenza", core.EntityCondition, "A contagious viral infection of the nose, throat and lungs."},
	{"flu", core.EntityCondition, "Influenza, a contagious viral infection of the respiratory tract."},
	{"covid-19", core.EntityCondition, "A respiratory illness caused by the SARS-CoV-2 coronavirus."},
	{"migraine", core.EntityCondition, "A recurring, often severe headache, sometimes with nausea or sensitivity to light."},
	{"arthritis", core.EntityCondition, "Inflammation of one or more joints, causing pain and stiffness."},
	{"osteoarthritis", core.EntityCondition, "Wear of the cartilage that cushions the ends of bones in a joint."},
	{"depression", core.EntityCondition, "A mood disorder causing persistent sadness and loss of interest."},
	{"anxiety", core.EntityCondition, "Excessive worry or fear that interferes with daily activities."},
	{"copd", core.EntityCondition, "Chronic obstructive pulmonary disease, a long-term lung disease that blocks airflow."},
	{"heart failure", core.EntityCondition, "A condition in which the heart does not pump blood as well as it should."},
	{"coronary artery disease", core.EntityCondition, "Narrowing of the arteries that supply blood to the heart."},
	{"stroke", core.EntityCondition, "Damage to the brain from an interrupted blood supply."},
	{"chronic kidney disease", core.EntityCondition, "Gradual loss of kidney function over time."},
	{"kidney disease", core.EntityCondition, "Damage to the kidneys that reduces their ability to filter blood."},
	{"infection", core.EntityCondition, "Invasion of the body by germs such as bacteria or viruses."},
	{"urinary tract infection", core.EntityCondition, "An infection in any part of the urinary system."},
	{"sinusitis", core.EntityCondition, "Inflammation of the sinuses, often after a cold."},
	{"allergy", core.EntityCondition, "An immune reaction to a substance that is usually harmless."},
	{"anemia", core.EntityCondition, "A shortage of healthy red blood cells to carry oxygen."},
	{"hypothyroidism", core.EntityCondition, "An underactive thyroid gland that does not make enough hormone."},
	{"gastroenteritis", core.EntityCondition, "Inflammation of the stomach and intestines, usually from an infection."},
	{"gerd", core.EntityCondition, "Gastroesophageal reflux disease, in which stomach acid repeatedly flows into the esophagus."},
	{"obesity", core.EntityCondition, "Excess body fat that raises the risk of other health problems."},
	{"neuropathy", core.EntityCondition, "Nerve damage that causes weakness, numbness or pain, often in the hands and feet."},
	{"retinopathy", core.EntityCondition, "Damage to the blood vessels of the retina that can affect vision."},
	{"nephropathy", core.EntityCondition, "Kidney damage, a common complication of diabetes."},
	{"hyperlipidemia", core.EntityCondition, "High levels of fats such as cholesterol in the blood."},

	// Medications
	{"metformin", core.EntityMedication, "A medicine that lowers blood sugar in type 2 diabetes."},
	{"insulin", core.EntityMedication, "A hormone, given by injection, that lowers blood sugar."},
	{"lisinopril", core.EntityMedication, "An ACE inhibitor used to treat high blood pressure and heart failure."},
	{"amlodipine", core.EntityMedication, "A calcium channel blocker used to treat high blood pressure."},
	{"atorvastatin", core.EntityMedication, "A statin that lowers cholesterol."},
	{"ibuprofen", core.EntityMedication, "A non-steroidal anti-inflammatory drug for pain, fever and inflammation."},
	{"acetaminophen", core.EntityMedication, "A pain reliever and fever reducer, also called paracetamol."},
	{"paracetamol", core.EntityMedication, "A pain reliever and fever reducer, also called acetaminophen."},
	{"aspirin", core.EntityMedication, "A medicine for pain and fever that also reduces blood clotting."},
	{"amoxicillin", core.EntityMedication, "A penicillin antibiotic used for bacterial infections."},
	{"azithromycin", core.EntityMedication, "A macrolide antibiotic used for respiratory and other infections."},
	{"albuterol", core.EntityMedication, "An inhaled medicine that relaxes the airways to ease breathing."},
	{"prednisone", core.EntityMedication, "A corticosteroid that reduces inflammation and immune activity."},
	{"omeprazole", core.EntityMedication, "A proton pump inhibitor that reduces stomach acid."},
	{"levothyroxine", core.EntityMedication, "A thyroid hormone replacement for an underactive thyroid."},
	{"sertraline", core.EntityMedication, "An SSRI antidepressant used for depression and anxiety."},
	{"metoprolol", core.EntityMedication, "A beta blocker used for high blood pressure and heart conditions."},
	{"losartan", core.EntityMedication, "An angiotensin receptor blocker used to treat high blood pressure."},
	{"hydrochlorothiazide", core.EntityMedication, "A diuretic that helps the body remove salt and water."},
	{"antibiotics", core.EntityMedication, "Medicines that kill or slow the growth of bacteria."},
	{"cough syrup", core.EntityMedication, "A liquid medicine that relieves coughing."},
	{"inhaler", core.EntityMedication, "A device that delivers medicine directly into the lungs."},

	// Tests and procedures
	{"blood test", core.EntityOther, "A sample of blood taken to check for disease or measure body function."},
	{"chest x-ray", core.EntityOther, "An image of the chest used to examine the lungs and heart."},
	{"x-ray", core.EntityOther, "An imaging test that uses radiation to see inside the body."},
	{"ecg", core.EntityOther, "Electrocardiogram, a test that records the electrical activity of the heart."},
	{"mri", core.EntityOther, "Magnetic resonance imaging, a scan that uses magnets and radio waves to image the body."},
	{"ct scan", core.EntityOther, "A series of x-ray images combined into cross-sections of the body."},
	{"blood pressure", core.EntityOther, "The force of blood pushing against artery walls."},
	{"physical therapy", core.EntityOther, "Treatment with exercise and movement to restore function."},
	{"vaccination", core.EntityOther, "Giving a vaccine to build immunity against a disease."},
	{"biopsy", core.EntityOther, "Removal of a small tissue sample for examination."},
}

// lexiconIndex maps a lowercased term to its entry.
var lexiconIndex = func() map[string]*LexiconEntry {
	idx := make(map[string]*LexiconEntry, len(lexicon))
	for i := range lexicon {
		idx[lexicon[i].Term] = &lexicon[i]
	}
	return idx
}()

// Lookup finds the lexicon entry for a term. Plural forms resolve to the
// singular entry.
func Lookup(term string) (LexiconEntry, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(term), " "))
	if e, ok := lexiconIndex[key]; ok {
		return *e, true
	}
	if singular, ok := singularize(key); ok {
		if e, ok := lexiconIndex[singular]; ok {
			return *e, true
		}
	}
	return LexiconEntry{}, false
}

// singularize strips a plural suffix from the last word.
func singularize(term string) (string, bool) {
	switch {
	case strings.HasSuffix(term, "ies") && len(term) > 4:
		return strings.TrimSuffix(term, "ies") + "y", true
	case strings.HasSuffix(term, "s") && !strings.HasSuffix(term, "ss") && len(term) > 3:
		return strings.TrimSuffix(term, "s"), true
	}
	return "", false
}
