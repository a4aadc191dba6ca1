package llm

const summaryPrompt = `
Résume le texte entre les triples parenthèses en suivant ces directives :

- Extrait les faits et informations importantes à mentionner
- Résume et output en français.
- Accorde les verbes au passé composé ou à l'imparfait.
- Extrait et ajoute la date en format "JJ mois AAAA" 

Met la totalité du texte en forme une seule fois en suivant cette structure :

Le <date>, <brève explication des faits>.

<Explication résumée des faits en utilisant les termes clés>.

(((%s)))`

const bordereauPrompt = `
Tu reçois un transcript d'une pièce juridique entre les triples parenthèses.
Tu vas générer une ligne de bordereau de pièce en suivant ces directives :

- Extrait le titre de la pièce qui décrit le plus justement la pièce en utilisant la terminologie juridique.
- Sois précis et concis dans le titre.
- Écris le titre avec une majuscule au début et le reste en minuscules.
- Ne mentionne pas le numéro du document dans le titre.

Output en suivant cette structure :
<Titre de la pièce>

IMPORTANT :
- Relis ton output et verifie les conditions suivantes :
- Dans le cas précis où la pièce est une attestation de témoin, mentionne le genre (Monsieur ou Madame) et le nom de famille de l'individu seulement (tout en majuscules).

(((%s)))`

const imagePrompt = `
Tu reçois une image de document juridique en rapport avec une affaire. 
Décris cette image de document juridique en français de manière concise et factuelle.
Retiens uniquement les éléments importants. 

Commence ta description par "La pièce image montre" et reste bref.
Ouput 2 à 3 phrases maximum.
`

const imageTitlePrompt = `
Génère un titre pour la description des images entres les triples parenthèses.
Le titre doit être court et significatif.
Output en une seule phrase.
Output en français.
Commence par une majuscule et finis par un point.

Exemple :
<Titre à générer>

(((%s)))
`

const classificationPrompt = `
Analyze this page and classify it as either:
1. "TEXT" - if it contains meaningful text content that should be processed with OCR
2. "IMAGE" - if it's primarily an image, photo, ID, or visual document that needs description
3. "SKIP" - if it's a blank or nearly blank page with no meaningful content

It is crucial and extremely important that you output ONLY with either "TEXT", "IMAGE", or "SKIP"
`

const generalPrompt = `
Résume le texte entre les triples parenthèses:
N'ajoute pas de titre ou de conclusion.
N'ajoute pas "Résumé" ou "Summary" au début.
N'ajoute pas "Le texte" au début.

(((%s)))
`

// TranscriptionPrompt asks a vision model for a verbatim page transcript.
const TranscriptionPrompt = `
Transcris fidèlement et intégralement le texte visible sur cette page de document juridique.
Conserve l'ordre de lecture et les retours à la ligne.
N'ajoute aucun commentaire, titre ou mise en forme.
Si la page ne contient aucun texte, réponds par une chaîne vide.
`
