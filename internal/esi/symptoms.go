package esi

import (
	"slices"
	"strings"
)

// Symptom is one entry of the canonical additional-symptom vocabulary.
type Symptom struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// symptomNames maps predictor feature codes to display names.
var symptomNames = map[string]string{
	"abdomhernia":                           "Abdominal Hernia",
	"abdomnlpain":                           "Abdominal Pain",
	"abortcompl":                            "Abortion Complications",
	"acqfootdef":                            "Acquired Foot Deformity",
	"acrenlfail":                            "Acute Renal Failure",
	"acutecvd":                              "Acute Cerebrovascular Disease",
	"acutemi":                               "Acute Myocardial Infarction",
	"acutphanm":                             "Acute Posthemorrhagic Anemia",
	"adjustmentdisorders":                   "Adjustment Disorders",
	"adltrespfl":                            "Adult Respiratory Failure",
	"alcoholrelateddisorders":               "Alcohol-Related Disorders",
	"allergy":                               "Allergic Reaction",
	"analrectal":                            "Anal or Rectal Condition",
	"anemia":                                "Anemia",
	"aneurysm":                              "Aneurysm",
	"anxietydisorders":                      "Anxiety Disorders",
	"appendicitis":                          "Appendicitis",
	"artembolism":                           "Arterial Embolism",
	"asppneumon":                            "Aspiration Pneumonitis",
	"asthma":                                "Asthma",
	"backproblem":                           "Back Problem",
	"biliarydx":                             "Biliary Tract Disease",
	"blindness":                             "Blindness or Vision Defect",
	"bph":                                   "Benign Prostatic Hyperplasia",
	"bronchitis":                            "Bronchitis",
	"burns":                                 "Burns",
	"cardiaarrst":                           "Cardiac Arrest",
	"carditis":                              "Carditis",
	"cataract":                              "Cataract",
	"chfnonhp":                              "Congestive Heart Failure",
	"chrkidneydisease":                      "Chronic Kidney Disease",
	"coaghemrdx":                            "Coagulation or Hemorrhagic Disorder",
	"copd":                                  "COPD",
	"crushinjury":                           "Crush Injury",
	"deliriumdementiaamnesticothercognitiv": "Delirium or Cognitive Disorder",
	"diabmelnoc":                            "Diabetes without Complication",
	"diabmelwcm":                            "Diabetes with Complication",
	"diverticulos":                          "Diverticulosis",
	"dizziness":                             "Dizziness or Vertigo",
	"dysrhythmia":                           "Cardiac Dysrhythmia",
	"earlylabor":                            "Early Labor",
	"ectopicpreg":                           "Ectopic Pregnancy",
	"encephalitis":                          "Encephalitis",
	"epilepsycnv":                           "Epilepsy or Convulsions",
	"esophgealdx":                           "Esophageal Disorder",
	"eyeinfectn":                            "Eye Infection",
	"fatigue":                               "Fatigue",
	"fluidelcdx":                            "Fluid or Electrolyte Disorder",
	"fuo":                                   "Fever of Unknown Origin",
	"fxarm":                                 "Fracture of Arm",
	"fxhip":                                 "Fracture of Hip",
	"fxleg":                                 "Fracture of Leg",
	"gangrene":                              "Gangrene",
	"gastritis":                             "Gastritis",
	"gastroent":                             "Gastroenteritis",
	"gihemorrhag":                           "Gastrointestinal Hemorrhage",
	"glaucoma":                              "Glaucoma",
	"goutotcrys":                            "Gout",
	"headachemig":                           "Headache or Migraine",
	"hemmorhoids":                           "Hemorrhoids",
	"hepatitis":                             "Hepatitis",
	"hivinfectn":                            "HIV Infection",
	"hrtvalvedx":                            "Heart Valve Disorder",
	"htn":                                   "Hypertension",
	"htncomplicn":                           "Hypertension with Complications",
	"hyperlipidem":                          "Hyperlipidemia",
	"influenza":                             "Influenza",
	"intobstruct":                           "Intestinal Obstruction",
	"intracrninj":                           "Intracranial Injury",
	"jointinjury":                           "Joint Injury",
	"leukemias":                             "Leukemia",
	"meningitis":                            "Meningitis",
	"mooddisorders":                         "Mood Disorders",
	"ms":                                    "Multiple Sclerosis",
	"nauseavomit":                           "Nausea and Vomiting",
	"nephritis":                             "Nephritis",
	"opnwndhead":                            "Open Wound of Head",
	"osteoarthros":                          "Osteoarthritis",
	"osteoporosis":                          "Osteoporosis",
	"otitismedia":                           "Otitis Media",
	"ovariancyst":                           "Ovarian Cyst",
	"pancreasdx":                            "Pancreatic Disorder",
	"paralysis":                             "Paralysis",
	"parkinsons":                            "Parkinson's Disease",
	"peritonitis":                           "Peritonitis",
	"phlebitis":                             "Phlebitis",
	"pid":                                   "Pelvic Inflammatory Disease",
	"pleurisy":                              "Pleurisy",
	"pneumonia":                             "Pneumonia",
	"pulmhartdx":                            "Pulmonary Heart Disease",
	"respdistres":                           "Respiratory Distress",
	"septicemia":                            "Septicemia",
	"shock":                                 "Shock",
	"sicklecell":                            "Sickle Cell Anemia",
	"skininfectn":                           "Skin Infection",
	"spincorinj":                            "Spinal Cord Injury",
	"sprain":                                "Sprain",
	"substancerelateddisorders":             "Substance-Related Disorders",
	"suicideandintentionalselfinflictedin":  "Suicide or Self-Inflicted Injury",
	"superficinj":                           "Superficial Injury",
	"syncope":                               "Syncope",
	"tia":                                   "Transient Ischemic Attack",
	"tonsillitis":                           "Tonsillitis",
	"tuberculosis":                          "Tuberculosis",
	"ulcerskin":                             "Skin Ulcer",
	"urinstone":                             "Urinary Stone",
	"uti":                                   "Urinary Tract Infection",
	"viralinfect":                           "Viral Infection",
}

// symptoms is the vocabulary sorted by display name.
var symptoms = func() []Symptom {
	out := make([]Symptom, 0, len(symptomNames))
	for id, name := range symptomNames {
		out = append(out, Symptom{ID: id, Name: name})
	}
	slices.SortFunc(out, func(a, b Symptom) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}()

// Symptoms returns the full vocabulary in alphabetical order of display name.
func Symptoms() []Symptom {
	return slices.Clone(symptoms)
}

// SymptomName returns the display name for code, or the code itself when it
// is not part of the vocabulary.
func SymptomName(code string) string {
	if name, ok := symptomNames[code]; ok {
		return name
	}
	return code
}

// KnownSymptom reports whether code is part of the vocabulary.
func KnownSymptom(code string) bool {
	_, ok := symptomNames[code]
	return ok
}

// SearchSymptoms filters the vocabulary by a case-insensitive substring match
// on the display name. An empty term returns everything.
func SearchSymptoms(term string) []Symptom {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return Symptoms()
	}
	out := []Symptom{}
	for _, s := range symptoms {
		if strings.Contains(strings.ToLower(s.Name), term) {
			out = append(out, s)
		}
	}
	return out
}
