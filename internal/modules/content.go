package modules

// Trigger descriptions are written for the classifier model: short,
// behavioral, and phrased as "select this module when...". Content blocks are
// the knowledge text injected into the system prompt.

const sleepTrigger = `the parent asks about bedtime, falling asleep, night waking, ` +
	`melatonin, sleep schedules, or morning tiredness`

const sleepContent = `Sleep and ADHD:
- Sleep problems affect up to 70% of children with ADHD. Delayed sleep onset is
  the most common pattern: the child is genuinely not sleepy at a typical
  bedtime, not oppositional.
- A consistent wind-down routine matters more than the exact bedtime. Screens
  off at least 60 minutes before bed; stimulating play earlier in the evening.
- Stimulant medication can delay sleep onset. If sleep worsened after a dose
  change, suggest the parent raise timing/dose with their prescriber rather
  than stopping medication themselves.
- Melatonin has evidence for sleep onset in children with ADHD at low doses,
  but dosing and timing should go through the child's clinician.
- Recommend keeping a one-week sleep diary (bedtime, sleep time, wakings)
  before changing anything: it often reveals the actual pattern.`

const schoolTrigger = `the parent asks about school performance, homework, teachers, ` +
	`IEP or 504 plans, classroom accommodations, or grades`

const schoolContent = `School support and ADHD:
- Common effective accommodations: preferential seating, chunked assignments,
  extended time, movement breaks, written instructions alongside verbal ones.
- Parents can request a formal evaluation for an IEP or 504 plan in writing;
  schools must respond within defined timelines. Encourage written requests
  over verbal ones.
- Homework battles usually reflect executive-function load, not defiance.
  Short, timed work blocks with breaks outperform long forced sessions.
- A daily report card between teacher and parent, rewarding two or three
  specific behaviors, has strong evidence behind it.
- Suggest one change at a time so cause and effect stay visible.`

const medicationTrigger = `the parent asks about stimulant or non-stimulant medication, ` +
	`side effects, dosing, starting or stopping medication`

const medicationContent = `Medication and ADHD:
- Stimulants (methylphenidate, amphetamine families) are first-line and
  effective for roughly 70-80% of children; non-stimulants (atomoxetine,
  guanfacine) are alternatives when stimulants fail or are not tolerated.
- Common early side effects: reduced appetite, sleep-onset delay, mild
  stomach aches. Many fade within weeks; appetite effects are managed with
  calorie-dense breakfasts and evening meals.
- Never advise changing dose or stopping medication: always route the parent
  back to the prescriber. Abrupt observations worth relaying to the
  prescriber include mood flattening, tics, or growth concerns.
- Medication trials are iterative; it is normal to adjust type and dose
  several times before settling.`

const behaviorTrigger = `the parent asks about defiance, meltdowns, hitting, not ` +
	`listening, discipline, rewards, or daily-routine struggles`

const behaviorContent = `Behavior strategies and ADHD:
- Behavior-parent-training principles: catch the child being good (specific
  labeled praise), rewards before punishments, immediate and small
  consequences over delayed large ones.
- Transitions are the hardest moments. Two-minute warnings, visual timers,
  and consistent routines reduce conflict more than explanations do.
- Ignore minor annoying behavior; respond to dangerous or destructive
  behavior calmly and consistently.
- Token/point systems work when rewards are immediate, cheap, and varied.
  Systems fail when rewards are weekly or revoked retroactively.
- Meltdowns after school often reflect depleted self-regulation, not
  manipulation; a snack and downtime before demands helps.`

const emotionsTrigger = `the parent asks about anxiety, anger, self-esteem, emotional ` +
	`outbursts, frustration tolerance, or the child feeling different`

const emotionsContent = `Emotional regulation and ADHD:
- Emotional dysregulation is a core feature for many children with ADHD, not
  a separate disorder: short fuse, big reactions, slow return to baseline.
- Co-occurring anxiety appears in roughly one third of children with ADHD
  and often looks like irritability or avoidance rather than worry talk.
- Name-it-to-tame-it: labeling the emotion out loud, without immediately
  problem-solving, measurably shortens outbursts.
- Self-esteem erodes from accumulated corrections. Aim for a high ratio of
  positive to corrective interactions; praise effort and process.
- Escalating alongside the child prolongs episodes; scripted calm responses
  protect the parent's own regulation.`

const diagnosisTrigger = `the parent asks about getting evaluated, diagnostic criteria, ` +
	`testing, whether behavior is "normal", or what a diagnosis means`

const diagnosisContent = `Diagnosis process and ADHD:
- Diagnosis is clinical: structured interviews and standardized rating scales
  (Vanderbilt, Conners) completed by parents and teachers. There is no blood
  test or brain scan that diagnoses ADHD.
- Symptoms must appear in two or more settings (home and school) and cause
  real impairment; high intelligence can mask impairment for years.
- Evaluation routes: pediatrician, child psychiatrist, or psychologist.
  Waitlists are common; school evaluations can proceed in parallel.
- Conditions that mimic or co-occur: sleep disorders, anxiety, learning
  disabilities, hearing problems. A good evaluation screens for these.
- A diagnosis opens doors (school services, targeted treatment); it does not
  label a child's potential.`
